package webhook

type EventType string

const (
	EventConnectionUpdate       EventType = "CONNECTION_UPDATE"
	EventQRCodeUpdated          EventType = "QRCODE_UPDATED"
	EventMessagesUpsert         EventType = "MESSAGES_UPSERT"
	EventMessagesUpdate         EventType = "MESSAGES_UPDATE"
	EventMessagesDelete         EventType = "MESSAGES_DELETE"
	EventMessagesReceiptUpdate  EventType = "MESSAGES_RECEIPT_UPDATE"
	EventGroupsUpsert           EventType = "GROUPS_UPSERT"
	EventGroupsUpdate           EventType = "GROUPS_UPDATE"
	EventGroupParticipantsUpdate EventType = "GROUP_PARTICIPANTS_UPDATE"
	EventContactsUpsert         EventType = "CONTACTS_UPSERT"
	EventContactsUpdate         EventType = "CONTACTS_UPDATE"
	EventChatsUpsert            EventType = "CHATS_UPSERT"
	EventChatsUpdate            EventType = "CHATS_UPDATE"
	EventChatsDelete            EventType = "CHATS_DELETE"
	EventPresenceUpdate         EventType = "PRESENCE_UPDATE"
	EventLIDMappingUpdate       EventType = "LID_MAPPING_UPDATE"
)

// AllowAll is the allow-list wildcard.
const AllowAll = "ALL"

// Payload is the outbound wire format: one JSON object per event.
type Payload struct {
	Instance string      `json:"instance"`
	Type     EventType   `json:"type"`
	Data     interface{} `json:"data"`
}
