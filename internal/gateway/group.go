package gateway

import (
	"github.com/gofiber/fiber/v2"

	"wagateway/internal/engine"
	"wagateway/internal/types"
	"wagateway/pkg/log"
	"wagateway/pkg/router"
)

func (g *Gateway) ListGroups(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}

	groups, err := conn.JoinedGroups(c.UserContext())
	if err != nil {
		log.Session(id).WithError(err).Error("Failed to list groups")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success list groups", groups)
}

func (g *Gateway) GroupMetadata(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	groupID := c.Params("group_id")

	metadata, err := conn.GroupMetadata(c.UserContext(), groupID)
	if err != nil {
		log.Session(id).WithField("group", groupID).WithError(err).Error("Failed to get group metadata")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success get group metadata", metadata)
}

func (g *Gateway) SetGroupName(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	groupID := c.Params("group_id")

	var req types.RequestGroupName
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.Name == "" {
		return router.ResponseBadRequest(c, "name is required")
	}

	if err := conn.SetGroupName(c.UserContext(), groupID, req.Name); err != nil {
		log.Session(id).WithField("group", groupID).WithError(err).Error("Failed to set group name")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success set group name")
}

func (g *Gateway) SetGroupTopic(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	groupID := c.Params("group_id")

	var req types.RequestGroupTopic
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	if err := conn.SetGroupTopic(c.UserContext(), groupID, req.Topic); err != nil {
		log.Session(id).WithField("group", groupID).WithError(err).Error("Failed to set group topic")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success set group topic")
}

func (g *Gateway) LeaveGroup(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	groupID := c.Params("group_id")

	if err := conn.GroupLeave(c.UserContext(), groupID); err != nil {
		log.Session(id).WithField("group", groupID).WithError(err).Error("Failed to leave group")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success leave group")
}

func (g *Gateway) GroupInviteCode(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	groupID := c.Params("group_id")
	reset := c.Query("reset") == "true"

	link, err := conn.GroupInviteCode(c.UserContext(), groupID, reset)
	if err != nil {
		log.Session(id).WithField("group", groupID).WithError(err).Error("Failed to get group invite code")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success get group invite code", map[string]interface{}{
		"invite_link": link,
	})
}

func (g *Gateway) UpdateGroupParticipants(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	groupID := c.Params("group_id")

	var req types.RequestParticipantsUpdate
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if len(req.Participants) == 0 {
		return router.ResponseBadRequest(c, "participants is required")
	}

	action := engine.ParticipantsAction(req.Action)
	switch action {
	case engine.ParticipantsAdd, engine.ParticipantsRemove, engine.ParticipantsPromote, engine.ParticipantsDemote:
	default:
		return router.ResponseBadRequest(c, "action must be one of add, remove, promote, demote")
	}

	result, err := conn.GroupParticipantsUpdate(c.UserContext(), groupID, req.Participants, action)
	if err != nil {
		log.Session(id).WithField("group", groupID).WithField("action", req.Action).WithError(err).Error("Failed to update group participants")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success update group participants", result)
}
