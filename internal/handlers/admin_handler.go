package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/service"
	"github.com/fathima-sithara/chat-app/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	directory      *service.DirectoryService
	importMaxBytes int64
	log            *zap.Logger
}

func NewAdminHandler(directory *service.DirectoryService, importMaxBytes int64, log *zap.Logger) *AdminHandler {
	return &AdminHandler{directory: directory, importMaxBytes: importMaxBytes, log: log}
}

// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.directory.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// POST /api/admin/users
func (h *AdminHandler) AddUser(c *fiber.Ctx) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.directory.Add(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		MobileNo: req.MobileNo,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return utils.JSONMessage(c, fiber.StatusCreated, "User added successfully", u)
}

// PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.directory.Update(c.UserContext(), c.Params("id"), models.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		MobileNo: req.MobileNo,
	})
	if err != nil {
		return err
	}
	return utils.JSONMessage(c, fiber.StatusOK, "User updated successfully", u)
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.directory.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return utils.JSONMessage(c, fiber.StatusOK, "User deleted successfully", nil)
}

// PUT /api/admin/users/block/:id
func (h *AdminHandler) ToggleBlock(c *fiber.Ctx) error {
	u, err := h.directory.ToggleBlock(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	msg := "User unblocked successfully"
	if u.IsBlocked {
		msg = "User blocked successfully"
	}
	h.log.Info("user block toggled", zap.String("user_id", u.ID), zap.Bool("blocked", u.IsBlocked))
	return utils.JSONMessage(c, fiber.StatusOK, msg, u)
}

// GET /api/admin/export
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	data, err := h.directory.Export(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment("users.xlsx")
	return c.Send(data)
}

// POST /api/admin/users/import (multipart: file)
func (h *AdminHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.New(apperrors.ErrValidation, "no file uploaded")
	}
	if fh.Size > h.importMaxBytes {
		return apperrors.Newf(apperrors.ErrTooLarge, "import file exceeds %d bytes", h.importMaxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return apperrors.New(apperrors.ErrValidation, "cannot read uploaded file")
	}
	defer f.Close()

	res, err := h.directory.Import(c.UserContext(), fh.Filename, f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":       "Users imported successfully",
		"importedCount": res.Imported,
		"skippedCount":  res.Skipped,
	})
}
