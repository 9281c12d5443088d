package gateway

import (
	"bytes"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sunshineplan/imgconv"

	"wagateway/internal/types"
	"wagateway/pkg/log"
	"wagateway/pkg/router"
)

// profilePhotoSize is the square edge WhatsApp expects for profile
// pictures.
const profilePhotoSize = 640

func (g *Gateway) UpdateProfileStatus(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}

	var req types.RequestStatus
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.Status == "" {
		return router.ResponseBadRequest(c, "status is required")
	}

	if err := conn.UpdateProfileStatus(c.UserContext(), req.Status); err != nil {
		log.Session(id).WithError(err).Error("Failed to update profile status")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success update profile status")
}

func (g *Gateway) UpdateProfileName(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}

	var req types.RequestProfileName
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.Name == "" {
		return router.ResponseBadRequest(c, "name is required")
	}

	if err := conn.UpdateProfileName(c.UserContext(), req.Name); err != nil {
		log.Session(id).WithError(err).Error("Failed to update profile name")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success update profile name")
}

func (g *Gateway) SetProfilePicture(c *fiber.Ctx) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return router.ResponseBadRequest(c, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Session(id).WithError(err).Error("Failed to open file")
		return router.ResponseInternalError(c, err.Error())
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		log.Session(id).WithError(err).Error("Failed to read file")
		return router.ResponseInternalError(c, err.Error())
	}

	jpeg, err := normalizeProfilePhoto(raw)
	if err != nil {
		log.Session(id).WithError(err).Warn("Failed to convert profile picture")
		return router.ResponseBadRequest(c, "file must be a decodable image")
	}

	photoID, err := conn.SetProfilePhoto(c.UserContext(), jpeg)
	if err != nil {
		log.Session(id).WithError(err).Error("Failed to set profile picture")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success set profile picture", map[string]interface{}{
		"picture_id": photoID,
	})
}

// normalizeProfilePhoto re-encodes any decodable image as a square JPEG.
func normalizeProfilePhoto(raw []byte) ([]byte, error) {
	img, err := imgconv.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	resized := imgconv.Resize(img, &imgconv.ResizeOption{Width: profilePhotoSize, Height: profilePhotoSize})
	out := new(bytes.Buffer)
	if err := imgconv.Write(out, resized, &imgconv.FormatOption{Format: imgconv.JPEG}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (g *Gateway) BlockContact(c *fiber.Ctx) error {
	return g.setBlocked(c, true, "Success block contact")
}

func (g *Gateway) UnblockContact(c *fiber.Ctx) error {
	return g.setBlocked(c, false, "Success unblock contact")
}

func (g *Gateway) setBlocked(c *fiber.Ctx, blocked bool, message string) error {
	conn, id, err := g.conn(c)
	if err != nil {
		return err
	}
	contactID := c.Params("contact_id")

	if err := conn.SetBlocked(c.UserContext(), contactID, blocked); err != nil {
		log.Session(id).WithField("contact", contactID).WithError(err).Error("Failed to update blocklist")
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, message)
}
