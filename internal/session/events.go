package session

import (
	"context"
	"encoding/base64"
	"time"

	qrCode "github.com/skip2/go-qrcode"

	"wagateway/internal/engine"
	"wagateway/internal/storage"
	"wagateway/internal/webhook"
	"wagateway/pkg/log"
)

// runLoop is the single consumer of one connection's event channel.
// Per-session ordering is preserved by construction; the loop exits on
// the first connection-closed event, after which either deletion or a
// scheduled re-create takes over.
func (m *Manager) runLoop(sess *Session, waiter *ResponseWaiter) {
	defer m.loops.Done()
	conn := sess.Conn()

	for {
		select {
		case <-conn.Done():
			return
		case evt, ok := <-conn.Events():
			if !ok {
				return
			}

			switch e := evt.(type) {
			case engine.CredsChanged:
				go m.persistMarker(sess.ID, e)

			case engine.ConnectionOpened:
				log.Session(sess.ID).Info("Connection opened")
				m.tracker.Clear(sess.ID)
				m.dispatcher.Dispatch(sess.ID, webhook.EventConnectionUpdate, map[string]interface{}{
					"connection": "open",
					"jid":        e.JID,
				})

			case engine.ConnectionClosed:
				m.dispatcher.Dispatch(sess.ID, webhook.EventConnectionUpdate, map[string]interface{}{
					"connection": "close",
					"reason":     e.Reason.String(),
				})
				m.handleClose(sess, waiter, e)
				return

			case engine.QRChallenge:
				m.dispatcher.Dispatch(sess.ID, webhook.EventQRCodeUpdated, map[string]interface{}{
					"qr":      e.Code,
					"timeout": int(e.Timeout.Seconds()),
				})
				m.answerQR(sess.ID, waiter, e)

			case engine.ProtocolEvent:
				m.dispatcher.Dispatch(sess.ID, e.Type, e.Data)
			}
		}
	}
}

// persistMarker is best-effort: credential material itself is persisted
// by the engine's datastore inside the credential directory.
func (m *Manager) persistMarker(id string, e engine.CredsChanged) {
	err := m.store.SaveMarker(id, storage.Marker{
		JID:        e.JID,
		Registered: e.Registered,
	})
	if err != nil {
		log.Session(id).WithError(err).Warn("Credential marker write failed")
	}
}

func (m *Manager) handleClose(sess *Session, waiter *ResponseWaiter, e engine.ConnectionClosed) {
	id := sess.ID
	_ = sess.Conn().Close()

	if e.Reason.Terminal() || !m.tracker.ShouldReconnect(id) {
		log.Session(id).WithField("reason", e.Reason.String()).Warn("Connection closed, destroying session")
		waiter.Fail("Unable to create session.")
		if err := m.Delete(id); err != nil {
			log.Session(id).WithError(err).Warn("Session cleanup failed")
		}
		return
	}

	delay := m.cfg.ReconnectInterval
	if e.Reason.Immediate() {
		delay = 0
	}
	log.Session(id).
		WithField("reason", e.Reason.String()).
		WithField("attempt", m.tracker.Attempts(id)).
		WithField("delay", delay.String()).
		Info("Connection closed, reconnect scheduled")

	time.AfterFunc(delay, func() {
		if m.closed.Load() {
			return
		}
		if err := m.Create(context.Background(), id, waiter, CreateOptions{}); err != nil {
			log.Session(id).WithError(err).Error("Reconnect failed")
		}
	})
}

// answerQR renders the pairing challenge as a scannable PNG data URL and
// delivers it through the waiter. The waiter accepts only the first
// result, so repeated QR rotations leave the delivered response intact.
func (m *Manager) answerQR(id string, waiter *ResponseWaiter, e engine.QRChallenge) {
	if !waiter.Pending() {
		return
	}

	qrPNG, err := qrCode.Encode(e.Code, qrCode.Medium, 256)
	if err != nil {
		log.Session(id).WithError(err).Error("QR code render failed")
		waiter.Fail("Unable to create QR code.")
		return
	}

	waiter.Succeed("QR code received, please scan the QR code.", map[string]interface{}{
		"qr":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG),
		"timeout": int(e.Timeout.Seconds()),
	})
}
