package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/database"
	"gorm.io/gorm"
)

// HandleProductList lists visible, non-archived products for the storefront.
func HandleProductList(c *fiber.Ctx) error {
	db := database.GetDB()
	query := db.Model(&models.Product{}).
		Where("visibility = ? AND archived = ?", true, false).
		Order("id DESC")
	if v := c.Query("category"); v != "" {
		query = query.Where("category = ?", v)
	}

	var rows []models.Product
	if err := query.Limit(200).Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_list_failed"})
	}
	return c.JSON(fiber.Map{"products": rows})
}

// HandleProductShow returns one product by id.
func HandleProductShow(c *fiber.Ctx) error {
	id, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_product_id"})
	}
	var product models.Product
	err := database.GetDB().Where("visibility = ? AND archived = ?", true, false).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product_not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_lookup_failed"})
	}
	return c.JSON(product)
}

// HandleAdminProductCreate creates a catalog row.
func HandleAdminProductCreate(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	product.ID = 0
	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}
	if err := database.GetDB().Create(&product).Error; err != nil {
		fiberlog.Errorf("product create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_create_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleAdminProductUpdate updates catalog fields including stock. Stock set
// here is an absolute correction; order flow only ever decrements
// conditionally.
func HandleAdminProductUpdate(c *fiber.Ctx) error {
	id, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_product_id"})
	}
	db := database.GetDB()

	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product_not_found"})
	}
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	product.ID = id
	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}
	if err := db.Save(&product).Error; err != nil {
		fiberlog.Errorf("product update failed for %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_update_failed"})
	}
	return c.JSON(product)
}
