package index

import (
	"github.com/gofiber/fiber/v2"

	"wagateway/pkg/router"
)

func Index(c *fiber.Ctx) error {
	return router.ResponseSuccess(c, "WhatsApp Gateway REST is running")
}
