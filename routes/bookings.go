package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"local-services-server/models"
	"local-services-server/services"
)

type BookingHandler struct {
	bookings *services.BookingService
	exports  *services.ExportService
}

func NewBookingHandler(bookings *services.BookingService, exports *services.ExportService) *BookingHandler {
	return &BookingHandler{bookings: bookings, exports: exports}
}

// RegisterBookingRoutes registers the public booking API
func RegisterBookingRoutes(api *gin.RouterGroup, h *BookingHandler) {
	bookings := api.Group("/bookings")
	{
		bookings.POST("", h.Create)
		bookings.GET("", h.List)
		bookings.GET("/:id", h.Get)
		bookings.PUT("/:id/cancel", h.Cancel)
		bookings.POST("/:id/feedback", h.Feedback)
		bookings.GET("/:id/receipt", h.Receipt)
		bookings.POST("/:id/photos", h.UploadPhoto)
	}
}

type createBookingRequest struct {
	ServiceType   string              `json:"serviceType"`
	Priority      string              `json:"priority"`
	Description   string              `json:"description"`
	ContactInfo   *models.ContactInfo `json:"contactInfo"`
	ScheduledTime *time.Time          `json:"scheduledTime"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type feedbackRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), services.CreateBookingInput{
		ServiceType:   req.ServiceType,
		Priority:      req.Priority,
		Description:   req.Description,
		ContactInfo:   req.ContactInfo,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Booking created successfully",
		"booking": booking,
	})
}

func (h *BookingHandler) List(c *gin.Context) {
	listBookings(c, h.bookings)
}

func listBookings(c *gin.Context, bookings *services.BookingService) {
	filter := services.ListBookingsFilter{
		Status:      c.Query("status"),
		ServiceType: c.Query("serviceType"),
		Priority:    c.Query("priority"),
		Limit:       queryInt(c, "limit", 0),
		Offset:      queryInt(c, "offset", 0),
	}
	items, total, err := bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, offset := services.NormalizePage(filter.Limit, filter.Offset)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"bookings": items,
		"count":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *BookingHandler) Get(c *gin.Context) {
	booking, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// find resolves the :id parameter as an id or booking number and writes
// the error response itself when it fails.
func (h *BookingHandler) find(c *gin.Context) (*models.Booking, bool) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if booking == nil {
		notFound(c, "booking")
		return nil, false
	}
	return booking, true
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}
	existing, ok := h.find(c)
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), existing.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking cancelled successfully",
		"booking": booking,
	})
}

func (h *BookingHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	existing, ok := h.find(c)
	if !ok {
		return
	}

	booking, err := h.bookings.SubmitFeedback(c.Request.Context(), existing.ID, req.Rating, req.Review)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thank you for your feedback",
		"booking": booking,
	})
}

func (h *BookingHandler) Receipt(c *gin.Context) {
	booking, ok := h.find(c)
	if !ok {
		return
	}
	pdf, err := h.exports.ReceiptPDF(c.Request.Context(), booking)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, booking.BookingNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *BookingHandler) UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "photo file is required")
		return
	}
	existing, ok := h.find(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	booking, err := h.bookings.AttachPhoto(c.Request.Context(), existing.ID, file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Photo uploaded successfully",
		"photos":  booking.Photos,
	})
}
