package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"

	"local-services-server/middleware"
	"local-services-server/models"
	"local-services-server/services"
	ws "local-services-server/websocket"
)

type AdminHandler struct {
	admins    *services.AdminService
	bookings  *services.BookingService
	dashboard *services.DashboardService
	exports   *services.ExportService
	hub       *ws.Hub
	upgrader  gws.Upgrader
}

func NewAdminHandler(admins *services.AdminService, bookings *services.BookingService, dashboard *services.DashboardService, exports *services.ExportService, hub *ws.Hub, allowedOrigins []string) *AdminHandler {
	return &AdminHandler{
		admins:    admins,
		bookings:  bookings,
		dashboard: dashboard,
		exports:   exports,
		hub:       hub,
		upgrader:  ws.NewUpgrader(allowedOrigins),
	}
}

// RegisterAdminRoutes registers login plus the JWT-protected admin API
func RegisterAdminRoutes(api *gin.RouterGroup, h *AdminHandler, auth gin.HandlerFunc) {
	admin := api.Group("/admin")
	admin.POST("/auth/login", h.Login)

	protected := admin.Group("")
	protected.Use(auth)
	{
		protected.GET("/auth/me", h.Me)
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/bookings", h.ListBookings)
		protected.GET("/bookings/export", h.ExportBookings)
		protected.GET("/bookings/:id", h.GetBooking)
		protected.PUT("/bookings/:id/status", h.UpdateStatus)
		protected.GET("/ws", h.LiveFeed)
	}
}

type updateStatusRequest struct {
	Status     string   `json:"status" binding:"required"`
	Notes      string   `json:"notes"`
	ActualCost *float64 `json:"actualCost"`
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *AdminHandler) ListBookings(c *gin.Context) {
	listBookings(c, h.bookings)
}

func (h *AdminHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if booking == nil {
		notFound(c, "booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

func (h *AdminHandler) ExportBookings(c *gin.Context) {
	data, err := h.exports.BookingsXLSX(c.Request.Context(), services.ListBookingsFilter{
		Status:      c.Query("status"),
		ServiceType: c.Query("serviceType"),
		Priority:    c.Query("priority"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		badRequest(c, "invalid booking id")
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	ctx := c.Request.Context()
	var (
		booking *models.Booking
		err     error
	)
	if req.ActualCost != nil {
		if req.Status != "completed" {
			badRequest(c, "actualCost can only be set when completing a booking")
			return
		}
		booking, err = h.bookings.Complete(ctx, id, req.ActualCost, req.Notes)
	} else {
		booking, err = h.bookings.UpdateStatus(ctx, id, req.Status, req.Notes)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking status updated successfully",
		"booking": booking,
	})
}

// LiveFeed upgrades the connection and subscribes the admin to booking activity.
func (h *AdminHandler) LiveFeed(c *gin.Context) {
	adminID, _ := middleware.GetAdminID(c)
	ws.ServeWebSocket(h.hub, h.upgrader, c.Writer, c.Request, adminID)
}
