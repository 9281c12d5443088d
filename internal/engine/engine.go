// Package engine abstracts the WhatsApp protocol implementation behind a
// small surface: open a connection for a session, receive typed lifecycle
// and protocol events on a per-session channel, and issue outbound calls.
// The wire protocol itself (pairing, encryption, multi-device sync) is
// delegated to whatsmeow; see meow.go.
package engine

import (
	"context"
	"time"

	"wagateway/internal/webhook"
)

// HistorySink is the session's message-history cache as seen by the engine:
// raw protocol message bytes keyed by canonical chat address and message id.
type HistorySink interface {
	Put(chatJID, messageID string, raw []byte)
	Get(chatJID, messageID string) ([]byte, bool)
}

type OpenOptions struct {
	SessionID      string
	CredentialDir  string
	UsePairingCode bool
	InlineMedia    bool
	History        HistorySink
}

type Opener interface {
	Open(ctx context.Context, opts OpenOptions) (Conn, error)
}

type CloseReason int

const (
	ReasonUnknown CloseReason = iota
	ReasonLoggedOut
	ReasonRestartRequired
	ReasonStreamReplaced
	ReasonConnectFailure
)

func (r CloseReason) String() string {
	switch r {
	case ReasonLoggedOut:
		return "logged_out"
	case ReasonRestartRequired:
		return "restart_required"
	case ReasonStreamReplaced:
		return "stream_replaced"
	case ReasonConnectFailure:
		return "connect_failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session must be destroyed rather than
// reconnected.
func (r CloseReason) Terminal() bool {
	return r == ReasonLoggedOut
}

// Immediate reports whether a reconnect should be scheduled with zero delay.
func (r CloseReason) Immediate() bool {
	return r == ReasonRestartRequired || r == ReasonStreamReplaced
}

// Event is a notification emitted by a connection. Events for one
// connection are delivered in emission order on a single channel.
type Event interface {
	isEvent()
}

// CredsChanged signals rotated or newly registered credentials; the
// session manager persists the credential marker on every occurrence.
type CredsChanged struct {
	JID        string
	Registered bool
}

type ConnectionOpened struct {
	JID string
}

type ConnectionClosed struct {
	Reason  CloseReason
	Message string
}

// QRChallenge carries a pairing challenge to present to the user.
type QRChallenge struct {
	Code    string
	Timeout time.Duration
}

// ProtocolEvent is any other engine notification, already shaped as a
// webhook payload.
type ProtocolEvent struct {
	Type webhook.EventType
	Data interface{}
}

func (CredsChanged) isEvent()     {}
func (ConnectionOpened) isEvent() {}
func (ConnectionClosed) isEvent() {}
func (QRChallenge) isEvent()      {}
func (ProtocolEvent) isEvent()    {}

type ParticipantsAction string

const (
	ParticipantsAdd     ParticipantsAction = "add"
	ParticipantsRemove  ParticipantsAction = "remove"
	ParticipantsPromote ParticipantsAction = "promote"
	ParticipantsDemote  ParticipantsAction = "demote"
)

// Conn is one live protocol connection. Close releases the connection and
// its event channel; after Close no further events are delivered.
type Conn interface {
	Events() <-chan Event
	Done() <-chan struct{}
	IsConnected() bool
	IsLoggedIn() bool
	Registered() bool
	JID() string

	PairPhone(ctx context.Context, phone string) (string, error)
	Logout(ctx context.Context) error
	Disconnect()
	Close() error

	SendText(ctx context.Context, to string, text string) (string, error)
	SendReaction(ctx context.Context, to string, messageID string, emoji string) (string, error)
	ReadMessages(ctx context.Context, chat string, sender string, messageIDs []string) error
	CheckRegistered(ctx context.Context, phone string) (bool, string)
	UpdateProfileStatus(ctx context.Context, status string) error
	UpdateProfileName(ctx context.Context, name string) error
	SetProfilePhoto(ctx context.Context, jpeg []byte) (string, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetGroupName(ctx context.Context, groupJID string, name string) error
	SetGroupTopic(ctx context.Context, groupJID string, topic string) error
	GroupMetadata(ctx context.Context, groupJID string) (interface{}, error)
	JoinedGroups(ctx context.Context) (interface{}, error)
	GroupLeave(ctx context.Context, groupJID string) error
	GroupInviteCode(ctx context.Context, groupJID string, reset bool) (string, error)
	GroupParticipantsUpdate(ctx context.Context, groupJID string, participants []string, action ParticipantsAction) (interface{}, error)
}
