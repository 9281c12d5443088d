package session

import (
	"wagateway/internal/engine"
	"wagateway/internal/history"
)

// Session is one logical WhatsApp connection: the live engine handle plus
// its message-history cache. At most one live handle exists per id; a
// replacement is installed only after its connection is established.
type Session struct {
	ID      string
	conn    engine.Conn
	history *history.Cache
}

func (s *Session) Conn() engine.Conn {
	return s.conn
}

func (s *Session) History() *history.Cache {
	return s.history
}

func (s *Session) IsConnected() bool {
	return s.conn.IsConnected()
}

func (s *Session) IsLoggedIn() bool {
	return s.conn.IsLoggedIn()
}

func (s *Session) JID() string {
	return s.conn.JID()
}
