package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"local-services-server/middleware"
	"local-services-server/models"
)

// CatalogHandler serves the service catalog. Categories double as booking
// service types.
type CatalogHandler struct {
	db *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// RegisterServiceRoutes registers the public catalog
func RegisterServiceRoutes(api *gin.RouterGroup, h *CatalogHandler) {
	api.GET("/services", h.ListActive)
	api.GET("/services/categories", h.Categories)
}

// RegisterAdminServiceRoutes registers catalog management
func RegisterAdminServiceRoutes(api *gin.RouterGroup, h *CatalogHandler, auth gin.HandlerFunc) {
	admin := api.Group("/admin/services")
	admin.Use(auth)
	{
		admin.GET("", h.ListAll)
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Deactivate)
	}
}

func (h *CatalogHandler) ListActive(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Where("is_active = ?", true)
	if category := strings.ToLower(strings.TrimSpace(c.Query("category"))); category != "" {
		query = query.Where("category = ?", category)
	}

	var items []models.Service
	if err := query.Order("category, sort_order, id").Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "services": items})
}

type categorySummary struct {
	Category   string  `json:"category"`
	Services   int64   `json:"services"`
	StartingAt float64 `json:"startingAt"`
}

func (h *CatalogHandler) Categories(c *gin.Context) {
	var rows []categorySummary
	err := h.db.WithContext(c.Request.Context()).Model(&models.Service{}).
		Select("category, COUNT(*) AS services, MIN(base_cost) AS starting_at").
		Where("is_active = ?", true).
		Group("category").
		Order("category").
		Scan(&rows).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": rows})
}

func (h *CatalogHandler) ListAll(c *gin.Context) {
	var items []models.Service
	if err := h.db.WithContext(c.Request.Context()).Order("category, sort_order, id").Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "services": items})
}

func bindServiceRequest(c *gin.Context) (*models.ServiceRequest, bool) {
	var req models.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return nil, false
	}
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Name = strings.TrimSpace(req.Name)
	if req.Category == "" || req.Name == "" {
		badRequest(c, "category and name are required")
		return nil, false
	}
	return &req, true
}

func (h *CatalogHandler) Create(c *gin.Context) {
	req, ok := bindServiceRequest(c)
	if !ok {
		return
	}

	service := models.Service{
		Category:      req.Category,
		Name:          req.Name,
		NameHi:        req.NameHi,
		Description:   req.Description,
		DescriptionHi: req.DescriptionHi,
		BaseCost:      req.BaseCost,
		IsActive:      true,
		SortOrder:     req.SortOrder,
	}
	db := h.db.WithContext(c.Request.Context())
	if err := db.Create(&service).Error; err != nil {
		respondError(c, err)
		return
	}
	// is_active has a column default, so false must be written explicitly.
	if req.IsActive != nil && !*req.IsActive {
		if err := db.Model(&service).Update("is_active", false).Error; err != nil {
			respondError(c, err)
			return
		}
	}

	logger := middleware.GetLogger(c)
	logger.Info().Uint("service_id", service.ID).Str("category", service.Category).Msg("✅ Service created")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Service created successfully",
		"service": service,
	})
}

func (h *CatalogHandler) load(c *gin.Context) (*models.Service, bool) {
	id, ok := paramUint(c, "id")
	if !ok {
		badRequest(c, "invalid service id")
		return nil, false
	}
	var service models.Service
	err := h.db.WithContext(c.Request.Context()).First(&service, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		notFound(c, "service")
		return nil, false
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &service, true
}

func (h *CatalogHandler) Update(c *gin.Context) {
	service, ok := h.load(c)
	if !ok {
		return
	}
	req, ok := bindServiceRequest(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{
		"category":       req.Category,
		"name":           req.Name,
		"name_hi":        req.NameHi,
		"description":    req.Description,
		"description_hi": req.DescriptionHi,
		"base_cost":      req.BaseCost,
		"sort_order":     req.SortOrder,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	db := h.db.WithContext(c.Request.Context())
	if err := db.Model(service).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := db.First(service, service.ID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Service updated successfully",
		"service": service,
	})
}

// Deactivate hides a service instead of deleting it so historic prices stay readable.
func (h *CatalogHandler) Deactivate(c *gin.Context) {
	service, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(service).Update("is_active", false).Error; err != nil {
		respondError(c, err)
		return
	}

	logger := middleware.GetLogger(c)
	logger.Info().Uint("service_id", service.ID).Msg("🗑️ Service deactivated")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Service deactivated successfully",
	})
}
