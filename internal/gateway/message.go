package gateway

import (
	"github.com/gofiber/fiber/v2"

	"wagateway/internal/types"
	"wagateway/pkg/log"
	"wagateway/pkg/router"
)

func (g *Gateway) SendText(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	chatID := c.Params("chat_id")

	var req types.RequestSendText
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.Message == "" {
		return router.ResponseBadRequest(c, "message is required")
	}

	msgID, err := conn.SendText(c.UserContext(), chatID, req.Message)
	if err != nil {
		log.Session(id).WithField("chat", chatID).WithError(err).Error("Failed to send message")
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Success send message", map[string]interface{}{
		"message_id": msgID,
	})
}

func (g *Gateway) React(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	chatID := c.Params("chat_id")
	messageID := c.Params("message_id")

	var req types.RequestReact
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.Emoji == "" {
		return router.ResponseBadRequest(c, "emoji is required")
	}

	msgID, err := conn.SendReaction(c.UserContext(), chatID, messageID, req.Emoji)
	if err != nil {
		log.Session(id).WithField("chat", chatID).WithField("message_id", messageID).WithError(err).Error("Failed to react to message")
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Success react to message", map[string]interface{}{
		"message_id": msgID,
	})
}

func (g *Gateway) MarkRead(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}

	var req types.RequestMarkRead
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.ChatJID == "" || len(req.MessageIDs) == 0 {
		return router.ResponseBadRequest(c, "chat_jid and message_ids are required")
	}

	if err := conn.ReadMessages(c.UserContext(), req.ChatJID, req.SenderJID, req.MessageIDs); err != nil {
		log.Session(id).WithField("chat", req.ChatJID).WithError(err).Error("Failed to mark messages as read")
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccess(c, "Success mark messages as read")
}

func (g *Gateway) CheckRegistered(c *fiber.Ctx) error {
	conn, _, err := g.conn(c)
	if err != nil {
		return err
	}
	phone := c.Params("phone")

	registered, jid := conn.CheckRegistered(c.UserContext(), phone)
	return router.ResponseSuccessWithData(c, "Success check registered", map[string]interface{}{
		"phone":      phone,
		"registered": registered,
		"jid":        jid,
	})
}
