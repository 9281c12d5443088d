package gateway

import (
	"errors"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"wagateway/internal/session"
	"wagateway/internal/types"
	"wagateway/pkg/auth"
	"wagateway/pkg/log"
	"wagateway/pkg/router"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// createTimeout bounds how long a create request waits for the pairing
// challenge before giving up the HTTP response. The session itself keeps
// connecting in the background.
const createTimeout = 60 * time.Second

func (g *Gateway) CreateSession(c *fiber.Ctx) error {
	var req types.RequestCreateSession
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if !sessionIDPattern.MatchString(req.SessionID) {
		return router.ResponseBadRequest(c, "session_id must be 1-64 characters of A-Z a-z 0-9 _ -")
	}
	if req.UsePairingCode && req.Phone == "" {
		return router.ResponseBadRequest(c, "phone is required when use_pairing_code is set")
	}

	log.Session(req.SessionID).WithField("pairing_code", req.UsePairingCode).Info("Creating session")

	waiter := session.NewResponseWaiter()
	err := g.manager.Create(c.UserContext(), req.SessionID, waiter, session.CreateOptions{
		UsePairingCode: req.UsePairingCode,
		PhoneNumber:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, session.ErrShuttingDown) {
			return router.ResponseInternalError(c, err.Error())
		}
		log.Session(req.SessionID).WithError(err).Error("Failed to create session")
		return router.ResponseInternalError(c, err.Error())
	}

	token, err := auth.IssueSessionToken(req.SessionID)
	if err != nil {
		log.Session(req.SessionID).WithError(err).Error("Failed to issue session token")
		return router.ResponseInternalError(c, err.Error())
	}

	// A credential-registered session reconnects without presenting a new
	// challenge, so the waiter would stay pending. Answer from state.
	if sess, ok := g.manager.Get(req.SessionID); ok && sess.Conn().Registered() {
		return router.ResponseCreatedWithData(c, "Session connected", map[string]interface{}{
			"session_id": req.SessionID,
			"token":      token,
		})
	}

	ctx, cancel := contextWithTimeout(c, createTimeout)
	defer cancel()

	result, err := waiter.Wait(ctx)
	if err != nil {
		return router.ResponseInternalError(c, "Timed out waiting for pairing challenge")
	}
	if !result.OK {
		return router.ResponseInternalError(c, result.Message)
	}

	data := map[string]interface{}{
		"session_id": req.SessionID,
		"token":      token,
	}
	if extra, ok := result.Data.(map[string]interface{}); ok {
		for k, v := range extra {
			data[k] = v
		}
	}
	return router.ResponseCreatedWithData(c, result.Message, data)
}

func (g *Gateway) SessionStatus(c *fiber.Ctx) error {
	id := sessionID(c)
	sess, ok := g.manager.Get(id)
	if !ok {
		return router.ResponseNotFound(c, "Session not found")
	}

	return router.ResponseSuccessWithData(c, "Success get session status", map[string]interface{}{
		"session_id": id,
		"jid":        sess.JID(),
		"connected":  sess.IsConnected(),
		"logged_in":  sess.IsLoggedIn(),
	})
}

func (g *Gateway) ListSessions(c *fiber.Ctx) error {
	ids := g.manager.List()
	sessions := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		sess, ok := g.manager.Get(id)
		if !ok {
			continue
		}
		sessions = append(sessions, map[string]interface{}{
			"session_id": id,
			"jid":        sess.JID(),
			"connected":  sess.IsConnected(),
			"logged_in":  sess.IsLoggedIn(),
		})
	}
	return router.ResponseSuccessWithData(c, "Success list sessions", sessions)
}

func (g *Gateway) DeleteSession(c *fiber.Ctx) error {
	id := sessionID(c)
	log.Session(id).Info("Deleting session")
	if err := g.manager.Delete(id); err != nil {
		log.Session(id).WithError(err).Error("Failed to delete session")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseNoContent(c)
}

func (g *Gateway) LogoutSession(c *fiber.Ctx) error {
	id := sessionID(c)
	log.Session(id).Info("Logging out session")
	if err := g.manager.Logout(c.UserContext(), id); err != nil {
		log.Session(id).WithError(err).Error("Failed to log out session")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success logged out session")
}
