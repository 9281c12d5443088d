package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/forPelevin/gomoji"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rivo/uniseg"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wagateway/internal/webhook"
	"wagateway/pkg/log"
)

const credentialDBFile = "session.db"

var ErrNotRegistered = errors.New("whatsapp id is not registered")
var ErrInvalidGroupID = errors.New("whatsapp group id is not on the group server")

// Meow opens whatsmeow-backed connections. Each session gets its own
// sqlstore container inside its credential directory, so deleting the
// directory removes the whole credential state.
type Meow struct{}

func NewMeow() *Meow {
	return &Meow{}
}

func (m *Meow) Open(ctx context.Context, opts OpenOptions) (Conn, error) {
	dbPath := filepath.Join(opts.CredentialDir, credentialDBFile)
	container, err := sqlstore.New(ctx, "sqlite3", "file:"+dbPath+"?_foreign_keys=on", nil)
	if err != nil {
		return nil, fmt.Errorf("open credential datastore: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("load device credentials: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	// The session manager owns the retry policy.
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true

	conn := &meowConn{
		sessionID:   opts.SessionID,
		client:      client,
		container:   container,
		history:     opts.History,
		inlineMedia: opts.InlineMedia,
		events:      make(chan Event, 512),
		done:        make(chan struct{}),
	}

	if conn.history != nil {
		client.GetMessageForRetry = conn.resolveForRetry
	}
	client.AddEventHandler(conn.handleEvent)

	if client.Store.ID == nil && !opts.UsePairingCode {
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("open qr channel: %w", err)
		}
		go conn.pumpQR(qrChan)
	}

	if err := client.Connect(); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}

	return conn, nil
}

type meowConn struct {
	sessionID   string
	client      *whatsmeow.Client
	container   *sqlstore.Container
	history     HistorySink
	inlineMedia bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *meowConn) Events() <-chan Event {
	return c.events
}

func (c *meowConn) Done() <-chan struct{} {
	return c.done
}

func (c *meowConn) emit(evt Event) {
	select {
	case <-c.done:
	case c.events <- evt:
	}
}

func (c *meowConn) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *meowConn) IsLoggedIn() bool {
	return c.client.IsLoggedIn()
}

func (c *meowConn) Registered() bool {
	return c.client.Store.ID != nil
}

func (c *meowConn) JID() string {
	if c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.String()
}

func (c *meowConn) PairPhone(ctx context.Context, phone string) (string, error) {
	return c.client.PairPhone(ctx, DecomposeJID(phone), true, whatsmeow.PairClientChrome, "Chrome ("+runtime.GOOS+")")
}

func (c *meowConn) Logout(ctx context.Context) error {
	return c.client.Logout(ctx)
}

func (c *meowConn) Disconnect() {
	c.client.Disconnect()
}

func (c *meowConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.client.RemoveEventHandlers()
		c.client.Disconnect()
		err = c.container.Close()
	})
	return err
}

func (c *meowConn) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.emit(QRChallenge{Code: item.Code, Timeout: item.Timeout})
		case whatsmeow.QRChannelSuccess.Event:
			return
		case whatsmeow.QRChannelTimeout.Event:
			c.emit(ConnectionClosed{Reason: ReasonConnectFailure, Message: "qr channel timed out"})
			return
		case "error":
			message := "qr channel error"
			if item.Error != nil {
				message = item.Error.Error()
			}
			c.emit(ConnectionClosed{Reason: ReasonConnectFailure, Message: message})
			return
		}
	}
}

func (c *meowConn) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.emit(CredsChanged{JID: e.ID.String(), Registered: true})
	case *events.Connected:
		c.emit(CredsChanged{JID: c.JID(), Registered: true})
		c.emit(ConnectionOpened{JID: c.JID()})
	case *events.LoggedOut:
		c.emit(ConnectionClosed{Reason: ReasonLoggedOut, Message: e.Reason.String()})
	case *events.StreamReplaced:
		c.emit(ConnectionClosed{Reason: ReasonStreamReplaced})
	case *events.Disconnected:
		c.emit(ConnectionClosed{Reason: ReasonUnknown})
	case *events.ConnectFailure:
		c.emit(ConnectionClosed{Reason: ReasonConnectFailure, Message: e.Message})
	case *events.TemporaryBan:
		log.Session(c.sessionID).Error(fmt.Sprintf("Client temporarily banned: reason=%s, expires=%s", e.Code, e.Expire))
	case *events.KeepAliveTimeout:
		log.Session(c.sessionID).Warn(fmt.Sprintf("Client keepalive timeout: errors=%d, lastSuccess=%s", e.ErrorCount, e.LastSuccess.Format(time.RFC3339)))
	case *events.Message:
		c.handleMessage(e)
	case *events.Receipt:
		c.handleReceipt(e)
	case *events.GroupInfo:
		c.handleGroupInfo(e)
	case *events.JoinedGroup:
		c.emit(ProtocolEvent{Type: webhook.EventGroupsUpsert, Data: e.GroupInfo})
	case *events.Contact:
		c.emit(ProtocolEvent{Type: webhook.EventContactsUpdate, Data: map[string]interface{}{
			"jid":       e.JID.String(),
			"full_name": e.Action.GetFullName(),
		}})
	case *events.PushName:
		c.emit(ProtocolEvent{Type: webhook.EventContactsUpdate, Data: map[string]interface{}{
			"jid":       e.JID.String(),
			"push_name": e.NewPushName,
		}})
	case *events.Presence:
		c.emit(ProtocolEvent{Type: webhook.EventPresenceUpdate, Data: map[string]interface{}{
			"from":        e.From.String(),
			"unavailable": e.Unavailable,
			"last_seen":   e.LastSeen.Unix(),
		}})
	case *events.Archive:
		c.emit(ProtocolEvent{Type: webhook.EventChatsUpdate, Data: map[string]interface{}{
			"jid":      e.JID.String(),
			"archived": e.Action.GetArchived(),
		}})
	case *events.Mute:
		c.emit(ProtocolEvent{Type: webhook.EventChatsUpdate, Data: map[string]interface{}{
			"jid":   e.JID.String(),
			"muted": e.Action.GetMuted(),
		}})
	case *events.Pin:
		c.emit(ProtocolEvent{Type: webhook.EventChatsUpdate, Data: map[string]interface{}{
			"jid":    e.JID.String(),
			"pinned": e.Action.GetPinned(),
		}})
	case *events.DeleteChat:
		c.emit(ProtocolEvent{Type: webhook.EventChatsDelete, Data: map[string]interface{}{
			"jid": e.JID.String(),
		}})
	case *events.HistorySync:
		c.emit(ProtocolEvent{Type: webhook.EventChatsUpsert, Data: map[string]interface{}{
			"conversations": len(e.Data.GetConversations()),
			"sync_type":     e.Data.GetSyncType().String(),
		}})
	}
}

func (c *meowConn) handleMessage(e *events.Message) {
	if c.history != nil {
		if raw, err := proto.Marshal(e.Message); err == nil {
			c.history.Put(e.Info.Chat.String(), e.Info.ID, raw)
		}
	}

	if pm := e.Message.GetProtocolMessage(); pm != nil {
		switch pm.GetType() {
		case waE2E.ProtocolMessage_REVOKE:
			c.emit(ProtocolEvent{Type: webhook.EventMessagesDelete, Data: map[string]interface{}{
				"message_id": pm.GetKey().GetID(),
				"chat":       e.Info.Chat.String(),
				"deleted_by": e.Info.Sender.String(),
				"timestamp":  e.Info.Timestamp.Unix(),
				"is_from_me": e.Info.IsFromMe,
			}})
			return
		case waE2E.ProtocolMessage_MESSAGE_EDIT:
			c.emit(ProtocolEvent{Type: webhook.EventMessagesUpdate, Data: map[string]interface{}{
				"message_id": pm.GetKey().GetID(),
				"chat":       e.Info.Chat.String(),
				"edited_by":  e.Info.Sender.String(),
				"timestamp":  e.Info.Timestamp.Unix(),
				"text":       pm.GetEditedMessage().GetConversation(),
			}})
			return
		}
	}

	payload := map[string]interface{}{
		"message_id": e.Info.ID,
		"from":       e.Info.Sender.String(),
		"chat":       e.Info.Chat.String(),
		"push_name":  e.Info.PushName,
		"timestamp":  e.Info.Timestamp.Unix(),
		"is_from_me": e.Info.IsFromMe,
	}

	kind, text := describeMessage(e.Message)
	payload["kind"] = kind
	if text != "" {
		payload["text"] = text
	}

	if c.inlineMedia {
		if media := c.downloadMedia(e.Message); media != nil {
			payload["file_base64"] = media
		}
	}

	c.emit(ProtocolEvent{Type: webhook.EventMessagesUpsert, Data: payload})
}

func describeMessage(msg *waE2E.Message) (kind string, text string) {
	switch {
	case msg.GetConversation() != "":
		return "text", msg.GetConversation()
	case msg.GetExtendedTextMessage() != nil:
		return "text", msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		return "image", msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return "video", msg.GetVideoMessage().GetCaption()
	case msg.GetAudioMessage() != nil:
		return "audio", ""
	case msg.GetDocumentMessage() != nil:
		return "document", msg.GetDocumentMessage().GetFileName()
	case msg.GetStickerMessage() != nil:
		return "sticker", ""
	case msg.GetReactionMessage() != nil:
		return "reaction", msg.GetReactionMessage().GetText()
	case msg.GetLocationMessage() != nil:
		return "location", ""
	case msg.GetContactMessage() != nil:
		return "contact", msg.GetContactMessage().GetDisplayName()
	default:
		return "unknown", ""
	}
}

func (c *meowConn) downloadMedia(msg *waE2E.Message) interface{} {
	var downloadable whatsmeow.DownloadableMessage
	switch {
	case msg.GetImageMessage() != nil:
		downloadable = msg.GetImageMessage()
	case msg.GetVideoMessage() != nil:
		downloadable = msg.GetVideoMessage()
	case msg.GetAudioMessage() != nil:
		downloadable = msg.GetAudioMessage()
	case msg.GetDocumentMessage() != nil:
		downloadable = msg.GetDocumentMessage()
	case msg.GetStickerMessage() != nil:
		downloadable = msg.GetStickerMessage()
	default:
		return nil
	}

	data, err := c.client.Download(context.Background(), downloadable)
	if err != nil {
		log.Session(c.sessionID).WithError(err).Debug("Media download for webhook inlining failed")
		return nil
	}
	return base64.StdEncoding.EncodeToString(data)
}

func (c *meowConn) handleReceipt(e *events.Receipt) {
	for _, msgID := range e.MessageIDs {
		c.emit(ProtocolEvent{Type: webhook.EventMessagesReceiptUpdate, Data: map[string]interface{}{
			"message_id": msgID,
			"chat":       e.Chat.String(),
			"sender":     e.Sender.String(),
			"receipt":    string(e.Type),
			"timestamp":  e.Timestamp.Unix(),
		}})
	}
}

func (c *meowConn) handleGroupInfo(e *events.GroupInfo) {
	changed := make([]string, 0, 8)
	action := ""
	appendJIDs := func(jids []types.JID, act string) {
		if len(jids) == 0 {
			return
		}
		action = act
		for _, jid := range jids {
			changed = append(changed, jid.String())
		}
	}
	appendJIDs(e.Join, "add")
	appendJIDs(e.Leave, "remove")
	appendJIDs(e.Promote, "promote")
	appendJIDs(e.Demote, "demote")

	if len(changed) > 0 {
		c.emit(ProtocolEvent{Type: webhook.EventGroupParticipantsUpdate, Data: map[string]interface{}{
			"id":           e.JID.String(),
			"action":       action,
			"participants": changed,
		}})
		return
	}

	c.emit(ProtocolEvent{Type: webhook.EventGroupsUpdate, Data: map[string]interface{}{
		"id": e.JID.String(),
	}})
}

func (c *meowConn) resolveForRetry(requester types.JID, to types.JID, id types.MessageID) *waE2E.Message {
	raw, ok := c.history.Get(to.String(), id)
	if !ok {
		return nil
	}
	var msg waE2E.Message
	if err := proto.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	return &msg
}

// resolveJID maps a caller-supplied chat id to a deliverable JID. Personal
// ids are verified against the server; a failed lookup is treated as not
// registered.
func (c *meowConn) resolveJID(ctx context.Context, id string) (types.JID, error) {
	remoteJID := ComposeJID(id)
	if remoteJID.Server == types.GroupServer {
		return remoteJID, nil
	}

	registered, resolved := c.CheckRegistered(ctx, id)
	if !registered {
		return types.EmptyJID, ErrNotRegistered
	}
	parsed, err := types.ParseJID(resolved)
	if err != nil {
		return types.EmptyJID, err
	}
	return parsed, nil
}

func (c *meowConn) CheckRegistered(ctx context.Context, phone string) (bool, string) {
	normalized := DecomposeJID(phone)
	if normalized == "" {
		return false, ""
	}
	infos, err := c.client.IsOnWhatsApp(ctx, []string{"+" + normalized})
	if err != nil || len(infos) == 0 || !infos[0].IsIn {
		return false, ""
	}
	return true, infos[0].JID.String()
}

func (c *meowConn) SendText(ctx context.Context, to string, text string) (string, error) {
	remoteJID, err := c.resolveJID(ctx, to)
	if err != nil {
		return "", err
	}

	msgExtra := whatsmeow.SendRequestExtra{ID: c.client.GenerateMessageID()}
	msgContent := &waE2E.Message{
		Conversation: proto.String(text),
	}
	if _, err := c.client.SendMessage(ctx, remoteJID, msgContent, msgExtra); err != nil {
		return "", err
	}
	return msgExtra.ID, nil
}

func (c *meowConn) SendReaction(ctx context.Context, to string, messageID string, emoji string) (string, error) {
	remoteJID, err := c.resolveJID(ctx, to)
	if err != nil {
		return "", err
	}

	if !gomoji.ContainsEmoji(emoji) && uniseg.GraphemeClusterCount(emoji) != 1 {
		return "", errors.New("whatsapp reaction must contain only 1 emoji character")
	}

	msgReact := &waE2E.Message{
		ReactionMessage: &waE2E.ReactionMessage{
			Key: &waCommon.MessageKey{
				FromMe:    proto.Bool(true),
				ID:        proto.String(messageID),
				RemoteJID: proto.String(remoteJID.String()),
			},
			Text:              proto.String(emoji),
			SenderTimestampMS: proto.Int64(time.Now().UnixMilli()),
		},
	}
	if _, err := c.client.SendMessage(ctx, remoteJID, msgReact); err != nil {
		return "", err
	}
	return messageID, nil
}

func (c *meowConn) ReadMessages(ctx context.Context, chat string, sender string, messageIDs []string) error {
	chatJID, err := c.resolveJID(ctx, chat)
	if err != nil {
		return err
	}

	senderJID := chatJID
	if sender != "" {
		senderJID, err = c.resolveJID(ctx, sender)
		if err != nil {
			return err
		}
	}

	ids := make([]types.MessageID, 0, len(messageIDs))
	for _, id := range messageIDs {
		ids = append(ids, types.MessageID(id))
	}
	return c.client.MarkRead(ctx, ids, time.Now(), chatJID, senderJID)
}

func (c *meowConn) UpdateProfileStatus(ctx context.Context, status string) error {
	return c.client.SetStatusMessage(ctx, status)
}

func (c *meowConn) UpdateProfileName(ctx context.Context, name string) error {
	return c.client.SendAppState(ctx, appstate.BuildSettingPushName(name))
}

func (c *meowConn) SetProfilePhoto(ctx context.Context, jpeg []byte) (string, error) {
	// An empty JID targets the user's own profile picture.
	return c.client.SetGroupPhoto(ctx, types.EmptyJID, jpeg)
}

func (c *meowConn) SetBlocked(ctx context.Context, id string, blocked bool) error {
	target, err := c.resolveJID(ctx, id)
	if err != nil {
		return err
	}
	action := events.BlocklistChangeActionUnblock
	if blocked {
		action = events.BlocklistChangeActionBlock
	}
	_, err = c.client.UpdateBlocklist(ctx, target, action)
	return err
}

func (c *meowConn) groupJID(id string) (types.JID, error) {
	groupJID := ComposeJID(id)
	if groupJID.Server != types.GroupServer {
		return types.EmptyJID, ErrInvalidGroupID
	}
	return groupJID, nil
}

func (c *meowConn) GroupMetadata(ctx context.Context, id string) (interface{}, error) {
	groupJID, err := c.groupJID(id)
	if err != nil {
		return nil, err
	}
	return c.client.GetGroupInfo(ctx, groupJID)
}

func (c *meowConn) JoinedGroups(ctx context.Context) (interface{}, error) {
	return c.client.GetJoinedGroups(ctx)
}

func (c *meowConn) GroupLeave(ctx context.Context, id string) error {
	groupJID, err := c.groupJID(id)
	if err != nil {
		return err
	}
	return c.client.LeaveGroup(ctx, groupJID)
}

func (c *meowConn) GroupInviteCode(ctx context.Context, id string, reset bool) (string, error) {
	groupJID, err := c.groupJID(id)
	if err != nil {
		return "", err
	}
	return c.client.GetGroupInviteLink(ctx, groupJID, reset)
}

func (c *meowConn) SetGroupName(ctx context.Context, id string, name string) error {
	groupJID, err := c.groupJID(id)
	if err != nil {
		return err
	}
	return c.client.SetGroupName(ctx, groupJID, name)
}

func (c *meowConn) SetGroupTopic(ctx context.Context, id string, topic string) error {
	groupJID, err := c.groupJID(id)
	if err != nil {
		return err
	}
	return c.client.SetGroupTopic(ctx, groupJID, "", "", topic)
}

func (c *meowConn) GroupParticipantsUpdate(ctx context.Context, id string, participants []string, action ParticipantsAction) (interface{}, error) {
	groupJID, err := c.groupJID(id)
	if err != nil {
		return nil, err
	}

	jids := make([]types.JID, 0, len(participants))
	for _, participant := range participants {
		parsed, err := c.resolveJID(ctx, participant)
		if err != nil {
			return nil, err
		}
		if parsed.Server == types.GroupServer {
			return nil, errors.New("whatsapp participant id must be a personal jid")
		}
		jids = append(jids, parsed)
	}

	var change whatsmeow.ParticipantChange
	switch action {
	case ParticipantsAdd:
		change = whatsmeow.ParticipantChangeAdd
	case ParticipantsRemove:
		change = whatsmeow.ParticipantChangeRemove
	case ParticipantsPromote:
		change = whatsmeow.ParticipantChangePromote
	case ParticipantsDemote:
		change = whatsmeow.ParticipantChangeDemote
	default:
		return nil, fmt.Errorf("invalid participants action %q", action)
	}

	return c.client.UpdateGroupParticipants(ctx, groupJID, jids, change)
}
