package internal

import (
	"github.com/gofiber/fiber/v2"

	"wagateway/pkg/auth"
	"wagateway/pkg/router"

	"wagateway/internal/gateway"
	ctlIndex "wagateway/internal/index"
)

func Routes(app *fiber.App, g *gateway.Gateway) {
	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Session creation and listing (master API key)
	// ---------------------------------------------
	apiKeyMiddleware := auth.APIKeyAuth()
	app.Post(router.BaseURL+"/sessions", apiKeyMiddleware, g.CreateSession)
	app.Get(router.BaseURL+"/sessions", apiKeyMiddleware, g.ListSessions)

	// Session operations (master key or session-bound bearer token)
	// ---------------------------------------------
	sessionMiddleware := auth.SessionAuth()

	app.Get(router.BaseURL+"/sessions/:session_id", sessionMiddleware, g.SessionStatus)
	app.Delete(router.BaseURL+"/sessions/:session_id", sessionMiddleware, g.DeleteSession)
	app.Post(router.BaseURL+"/sessions/:session_id/logout", sessionMiddleware, g.LogoutSession)

	// Messaging
	app.Post(router.BaseURL+"/sessions/:session_id/chats/:chat_id/messages", sessionMiddleware, g.SendText)
	app.Put(router.BaseURL+"/sessions/:session_id/chats/:chat_id/messages/:message_id/reaction", sessionMiddleware, g.React)
	app.Post(router.BaseURL+"/sessions/:session_id/messages/read", sessionMiddleware, g.MarkRead)
	app.Get(router.BaseURL+"/sessions/:session_id/contacts/:phone/registered", sessionMiddleware, g.CheckRegistered)

	// Groups
	app.Get(router.BaseURL+"/sessions/:session_id/groups", sessionMiddleware, g.ListGroups)
	app.Get(router.BaseURL+"/sessions/:session_id/groups/:group_id", sessionMiddleware, g.GroupMetadata)
	app.Patch(router.BaseURL+"/sessions/:session_id/groups/:group_id/name", sessionMiddleware, g.SetGroupName)
	app.Patch(router.BaseURL+"/sessions/:session_id/groups/:group_id/topic", sessionMiddleware, g.SetGroupTopic)
	app.Post(router.BaseURL+"/sessions/:session_id/groups/:group_id/leave", sessionMiddleware, g.LeaveGroup)
	app.Get(router.BaseURL+"/sessions/:session_id/groups/:group_id/invite-code", sessionMiddleware, g.GroupInviteCode)
	app.Patch(router.BaseURL+"/sessions/:session_id/groups/:group_id/participants", sessionMiddleware, g.UpdateGroupParticipants)

	// Profile
	app.Post(router.BaseURL+"/sessions/:session_id/profile/status", sessionMiddleware, g.UpdateProfileStatus)
	app.Post(router.BaseURL+"/sessions/:session_id/profile/name", sessionMiddleware, g.UpdateProfileName)
	app.Post(router.BaseURL+"/sessions/:session_id/profile/picture", sessionMiddleware, g.SetProfilePicture)

	// Contacts
	app.Post(router.BaseURL+"/sessions/:session_id/contacts/:contact_id/block", sessionMiddleware, g.BlockContact)
	app.Delete(router.BaseURL+"/sessions/:session_id/contacts/:contact_id/block", sessionMiddleware, g.UnblockContact)
}
