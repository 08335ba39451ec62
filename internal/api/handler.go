package api

import (
	"net/http"
	"strconv"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	bookings      *service.BookingService
	settlement    *service.SettlementService
	jwtSecret     []byte
	webhookSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(bookings *service.BookingService, settlement *service.SettlementService, jwtSecret, webhookSecret string) *Handler {
	return &Handler{
		bookings:      bookings,
		settlement:    settlement,
		jwtSecret:     []byte(jwtSecret),
		webhookSecret: webhookSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/payment", h.paymentWebhook)

	v1 := router.Group("/api/v1")
	v1.Use(AuthRequired(h.jwtSecret))
	{
		v1.POST("/bookings/order", h.createBookingOrder)
		v1.POST("/bookings", h.directBook)
		v1.GET("/bookings", h.listBookings)
		v1.GET("/bookings/:id", h.getBooking)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createBookingOrder handles order issuance for a booking
func (h *Handler) createBookingOrder(c *gin.Context) {
	var req service.CreateBookingRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	renterRef := c.GetString(ctxRenterRef)

	resp, err := h.bookings.CreateBookingOrder(c.Request.Context(), renterRef, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":       resp.OrderID,
		"amount":         resp.Amount,
		"currency":       resp.Currency,
		"reservation_id": resp.ReservationID,
		"renter": gin.H{
			"name": c.GetString(ctxRenterName),
		},
	})
}

// directBook handles gateway-less booking creation
func (h *Handler) directBook(c *gin.Context) {
	var req service.CreateBookingRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	renterRef := c.GetString(ctxRenterRef)

	id, err := h.bookings.DirectBook(c.Request.Context(), renterRef, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reservation_id": id,
	})
}

// getBooking handles get reservation by ID
func (h *Handler) getBooking(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reservation ID",
		})
		return
	}

	renterRef := c.GetString(ctxRenterRef)

	reservation, err := h.bookings.GetBooking(c.Request.Context(), renterRef, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation})
}

// listBookings handles listing a renter's reservations
func (h *Handler) listBookings(c *gin.Context) {
	renterRef := c.GetString(ctxRenterRef)

	reservations, err := h.bookings.ListBookings(c.Request.Context(), renterRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// respondError maps a service error to its HTTP status and message.
// 500s never echo the underlying error text: persistence failures wrap
// raw driver detail that must not reach clients.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
