package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandlover88/brandlover-backend/internal/models"
)

// ProductHandler serves the public storefront: listing, detail, brand list.
type ProductHandler struct {
	DB *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{DB: db}
}

func (h *ProductHandler) ListPublic(c *fiber.Ctx) error {
	// ===== FILTER =====
	qSearch := c.Query("q")
	brand := c.Query("brand")
	featuredOnly := c.QueryBool("featured", false)

	filters := func(q *gorm.DB) *gorm.DB {
		if qSearch != "" {
			like := "%" + strings.ToLower(qSearch) + "%"
			q = q.Where(
				"LOWER(brand) LIKE ? OR LOWER(model) LIKE ? OR LOWER(title) LIKE ? OR LOWER(price) LIKE ?",
				like, like, like, like,
			)
		}
		if brand != "" {
			q = q.Where("brand = ?", brand)
		}
		if featuredOnly {
			q = q.Where("featured = ?", true)
		}
		return q
	}

	// ===== PAGINATION =====
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	var totalItems int64
	if err := filters(h.DB.Model(&models.Product{})).Count(&totalItems).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to count products",
		})
	}

	var products []models.Product
	if err := filters(h.DB.Model(&models.Product{})).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error; err != nil {

		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch products",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"meta": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_items": totalItems,
			"total_pages": int(math.Ceil(float64(totalItems) / float64(limit))),
		},
	})
}

func (h *ProductHandler) GetDetail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid product ID",
		})
	}

	var product models.Product
	if err := h.DB.First(&product, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Product not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

// GetBrands lists the distinct brands in the catalog, for the storefront
// filter bar.
func (h *ProductHandler) GetBrands(c *fiber.Ctx) error {
	var brands []string

	err := h.DB.
		Model(&models.Product{}).
		Distinct("brand").
		Order("brand").
		Pluck("brand", &brands).
		Error

	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch brands",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    brands,
	})
}
