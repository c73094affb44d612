package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/dto"
	"github.com/jerryawoyele/markezon-backend/internal/http/handlers/common"
	"github.com/jerryawoyele/markezon-backend/internal/service"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Create POST /services
func (h *CatalogHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "title и price обязательны")
		return
	}

	in, err := listingInput(req.Title, req.Description, req.Category, req.Price, req.PhotoID, nil)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.catalog.CreateService(c.Request.Context(), userID, role, in)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// Get GET /services/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.catalog.GetService(c.Request.Context(), serviceID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Update PUT /services/:id
func (h *CatalogHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "title и price обязательны")
		return
	}

	in, err := listingInput(req.Title, req.Description, req.Category, req.Price, req.PhotoID, req.IsActive)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.catalog.UpdateService(c.Request.Context(), userID, serviceID, in)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// List GET /services?category=...
func (h *CatalogHandler) List(c *gin.Context) {
	category := c.Query("category")
	limit := common.ParseIntQuery(c, "limit", 20)
	offset := common.ParseIntQuery(c, "offset", 0)

	listings, err := h.catalog.ListActive(c.Request.Context(), category, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// ListByProvider GET /users/:id/services
func (h *CatalogHandler) ListByProvider(c *gin.Context) {
	providerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit := common.ParseIntQuery(c, "limit", 20)
	offset := common.ParseIntQuery(c, "offset", 0)

	listings, err := h.catalog.ListByProvider(c.Request.Context(), providerID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

func listingInput(title string, description, category *string, price float64, photoID *string, isActive *bool) (service.ServiceListingInput, error) {
	in := service.ServiceListingInput{
		Title:       title,
		Description: description,
		Category:    category,
		Price:       price,
		IsActive:    isActive,
	}
	if photoID != nil {
		parsed, err := uuid.Parse(*photoID)
		if err != nil {
			return in, common.ErrInvalidUUID
		}
		in.PhotoID = &parsed
	}
	return in, nil
}
