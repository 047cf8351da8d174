package handlers

import (
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandlover88/brandlover-backend/internal/catalog"
	"github.com/brandlover88/brandlover-backend/internal/models"
)

// AdminHandler exposes the admin panel flows: the per-user editing session,
// image upload, and product create/update/delete. All product mutation goes
// through catalog.Service so the cache, blob store and event feed stay
// consistent.
type AdminHandler struct {
	DB       *gorm.DB
	Svc      *catalog.Service
	Sessions *catalog.Manager
}

func NewAdminHandler(db *gorm.DB, svc *catalog.Service, sessions *catalog.Manager) *AdminHandler {
	return &AdminHandler{DB: db, Svc: svc, Sessions: sessions}
}

func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	rawID, ok := c.Locals("userId").(string)
	if !ok || rawID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	uID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id")
	}
	return uID, nil
}

func (h *AdminHandler) session(c *fiber.Ctx) (*catalog.Session, error) {
	uid, err := getAuth(c)
	if err != nil {
		return nil, err
	}
	return h.Sessions.Get(uid.String(), c.Query("lang", "")), nil
}

func sessionState(sess *catalog.Session) fiber.Map {
	temp := sess.TemporaryImages()
	tempURLs := make([]string, 0, len(temp))
	for u := range temp {
		tempURLs = append(tempURLs, u)
	}
	return fiber.Map{
		"draft":            sess.Draft(),
		"editing_id":       sess.EditingID(),
		"temporary_images": tempURLs,
		"notice":           sess.Notice(),
		"upload":           sess.Upload(),
	}
}

// GetSession returns the current editing state for the signed-in admin.
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": sessionState(sess)})
}

type draftReq struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Title        string `json:"title"`
	Price        string `json:"price"`
	Description  string `json:"description"`
	TelegramLink string `json:"telegram_link"`
	Featured     bool   `json:"featured"`
}

// PatchDraft applies form field edits to the draft.
func (h *AdminHandler) PatchDraft(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req draftReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	sess.SetDraftFields(req.Brand, req.Model, req.Title, req.Price, req.Description, req.TelegramLink, req.Featured)
	return c.JSON(fiber.Map{"success": true, "data": sessionState(sess)})
}

// UploadImages takes a multipart batch under the "images" field and runs the
// upload flow: size check, compression, blob upload, draft append.
func (h *AdminHandler) UploadImages(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No files uploaded",
		})
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No files uploaded",
		})
	}

	files := make([]catalog.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			log.Printf("open upload %s: %v", fh.Filename, err)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			log.Printf("read upload %s: %v", fh.Filename, err)
			continue
		}
		files = append(files, catalog.UploadFile{Name: fh.Filename, Size: fh.Size, Data: data})
	}

	if err := h.Svc.UploadImages(c.Context(), sess, files); err != nil {
		status := fiber.StatusInternalServerError
		if err == catalog.ErrBusy {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": "Upload failed",
			"data":    sessionState(sess),
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": sessionState(sess)})
}

// RemoveImage drops one draft image by index; session uploads are also
// deleted from the blob store.
func (h *AdminHandler) RemoveImage(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid image index",
		})
	}

	if err := h.Svc.RemoveImage(c.Context(), sess, index); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": sessionState(sess)})
}

// StartEditing loads a product into the draft for updating.
func (h *AdminHandler) StartEditing(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid product ID",
		})
	}

	if err := h.Svc.StartEditing(sess, id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Product not found",
			"data":    sessionState(sess),
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": sessionState(sess)})
}

// Create commits the draft as a new product. An optional body patches the
// form fields first, so a client can save in one round trip.
func (h *AdminHandler) Create(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	if len(c.Body()) > 0 {
		var req draftReq
		if err := c.BodyParser(&req); err == nil {
			sess.SetDraftFields(req.Brand, req.Model, req.Title, req.Price, req.Description, req.TelegramLink, req.Featured)
		}
	}

	product, err := h.Svc.Create(c.Context(), sess)
	if err != nil {
		return adminFlowError(c, sess, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    product,
		"session": sessionState(sess),
	})
}

// Update commits the draft over the product being edited. The path id must
// match the session's edit target.
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid product ID",
		})
	}
	if sess.EditingID() != id {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Not editing this product",
		})
	}

	if len(c.Body()) > 0 {
		var req draftReq
		if err := c.BodyParser(&req); err == nil {
			sess.SetDraftFields(req.Brand, req.Model, req.Title, req.Price, req.Description, req.TelegramLink, req.Featured)
		}
	}

	product, err := h.Svc.Update(c.Context(), sess)
	if err != nil {
		return adminFlowError(c, sess, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
		"session": sessionState(sess),
	})
}

// Delete removes a product, its images first.
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid product ID",
		})
	}

	if err := h.Svc.Delete(c.Context(), sess, id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete product",
			"session": sessionState(sess),
		})
	}

	return c.JSON(fiber.Map{"success": true, "session": sessionState(sess)})
}

// Reset abandons the editing session and cleans up uncommitted uploads.
func (h *AdminHandler) Reset(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Reset(c.Context(), sess); err != nil {
		return adminFlowError(c, sess, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": sessionState(sess)})
}

// ListCached serves the admin product list from the in-memory cache, with
// the case-insensitive substring search over brand/model/title/price.
func (h *AdminHandler) ListCached(c *fiber.Ctx) error {
	q := c.Query("q", "")
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Svc.Cache().Search(q),
	})
}

// Stats summarizes the catalog for the admin header.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	var total, featured int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		log.Printf("stats: count products: %v", err)
	}
	if err := h.DB.Model(&models.Product{}).Where("featured = ?", true).Count(&featured).Error; err != nil {
		log.Printf("stats: count featured: %v", err)
	}

	var brands int64
	h.DB.Model(&models.Product{}).Distinct("brand").Count(&brands)

	var latest []models.Product
	h.DB.Order("created_at DESC").Limit(5).Find(&latest)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_products": total,
			"featured":       featured,
			"brands":         brands,
			"latest":         latest,
		},
	})
}

func adminFlowError(c *fiber.Ctx, sess *catalog.Session, err error) error {
	status := fiber.StatusInternalServerError
	switch err {
	case catalog.ErrValidation:
		status = fiber.StatusBadRequest
	case catalog.ErrNotFound:
		status = fiber.StatusNotFound
	case catalog.ErrBusy:
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"session": sessionState(sess),
	})
}
