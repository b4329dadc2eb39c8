package handler

import (
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var in service.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.CreateProduct(c.UserContext(), in, actorFrom(c))
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return err
	}

	var in service.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), id, in, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return err
	}
	if err := h.service.DeleteProduct(c.UserContext(), id, actorFrom(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return err
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// GetProductByScanCode serves the barcode scanner lookup.
// GET /api/v1/products/scan/:code
func (h *CatalogHandler) GetProductByScanCode(c *fiber.Ctx) error {
	product, err := h.service.GetProductByScanCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// GetProductMovements returns the stock journal of one product.
func (h *CatalogHandler) GetProductMovements(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return err
	}
	movements, err := h.service.GetProductMovements(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(movements)
}

// ImportProducts upserts a batch of products by scan code.
// POST /api/v1/products/import
func (h *CatalogHandler) ImportProducts(c *fiber.Ctx) error {
	var rows []service.ProductInput
	if err := c.BodyParser(&rows); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if len(rows) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "No products to import"})
	}

	result, err := h.service.ImportProducts(c.UserContext(), rows, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}
