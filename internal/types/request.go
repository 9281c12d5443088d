package types

type RequestCreateSession struct {
	SessionID      string `json:"session_id"`
	UsePairingCode bool   `json:"use_pairing_code"`
	Phone          string `json:"phone"`
}

type RequestSendText struct {
	Message string `json:"message"`
}

type RequestReact struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type RequestMarkRead struct {
	ChatJID    string   `json:"chat_jid"`
	SenderJID  string   `json:"sender_jid"`
	MessageIDs []string `json:"message_ids"`
}

type RequestStatus struct {
	Status string `json:"status"`
}

type RequestProfileName struct {
	Name string `json:"name"`
}

type RequestGroupName struct {
	Name string `json:"name"`
}

type RequestGroupTopic struct {
	Topic string `json:"topic"`
}

type RequestParticipantsUpdate struct {
	Participants []string `json:"participants"`
	Action       string   `json:"action"`
}
