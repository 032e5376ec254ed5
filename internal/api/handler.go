package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/jobqueue"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/pricing"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/service"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	bookingService *service.BookingService
	paymentService *service.PaymentService
	orchestrator   *service.SettlementOrchestrator
	queue          jobqueue.Queue
	webhookSecret  string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bookingService *service.BookingService,
	paymentService *service.PaymentService,
	orchestrator *service.SettlementOrchestrator,
	queue jobqueue.Queue,
	webhookSecret string,
) *Handler {
	return &Handler{
		bookingService: bookingService,
		paymentService: paymentService,
		orchestrator:   orchestrator,
		queue:          queue,
		webhookSecret:  webhookSecret,
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

	router.POST("/webhooks/stripe", h.stripeWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bookings/flights", h.createFlightBooking)
		v1.POST("/bookings/hotels", h.createHotelBooking)
		v1.POST("/bookings/cars", h.createCarBooking)
		v1.POST("/guest/bookings/flights", h.createGuestFlightBooking)
		v1.POST("/guest/bookings/hotels", h.createGuestHotelBooking)
		v1.POST("/guest/bookings/cars", h.createGuestCarBooking)
		v1.GET("/bookings/:reference", h.getBooking)
		v1.POST("/bookings/:reference/payment-intent", h.createPaymentIntent)
		v1.POST("/bookings/:reference/charge", h.chargeMargin)
		v1.GET("/queue/status", h.queueStatus)
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

func (h *Handler) createFlightBooking(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req service.CreateFlightBookingRequest
	if !bindBooking(c, &req, &req.BookingRequest) {
		return
	}

	resp, err := h.bookingService.CreateFlightBooking(c.Request.Context(), userID, &req)
	respondBooking(c, resp, err)
}

func (h *Handler) createHotelBooking(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req service.CreateHotelBookingRequest
	if !bindBooking(c, &req, &req.BookingRequest) {
		return
	}

	resp, err := h.bookingService.CreateHotelBooking(c.Request.Context(), userID, &req)
	respondBooking(c, resp, err)
}

func (h *Handler) createCarBooking(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req service.CreateCarBookingRequest
	if !bindBooking(c, &req, &req.BookingRequest) {
		return
	}

	resp, err := h.bookingService.CreateCarBooking(c.Request.Context(), userID, &req)
	respondBooking(c, resp, err)
}

func (h *Handler) createGuestFlightBooking(c *gin.Context) {
	var req service.CreateFlightBookingRequest
	if !bindBooking(c, &req, &req.BookingRequest) {
		return
	}

	resp, err := h.bookingService.CreateGuestFlightBooking(c.Request.Context(), &req)
	respondBooking(c, resp, err)
}

func (h *Handler) createGuestHotelBooking(c *gin.Context) {
	var req service.CreateHotelBookingRequest
	if !bindBooking(c, &req, &req.BookingRequest) {
		return
	}

	resp, err := h.bookingService.CreateGuestHotelBooking(c.Request.Context(), &req)
	respondBooking(c, resp, err)
}

func (h *Handler) createGuestCarBooking(c *gin.Context) {
	var req service.CreateCarBookingRequest
	if !bindBooking(c, &req, &req.BookingRequest) {
		return
	}

	resp, err := h.bookingService.CreateGuestCarBooking(c.Request.Context(), &req)
	respondBooking(c, resp, err)
}

func (h *Handler) getBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Booking not found",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) createPaymentIntent(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	resp, err := h.paymentService.CreatePaymentIntent(c.Request.Context(), booking.ID)
	if err != nil {
		c.JSON(paymentStatusCode(err), gin.H{
			"error":   "Failed to create payment intent",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) chargeMargin(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	resp, err := h.paymentService.ChargeMargin(c.Request.Context(), booking.ID)
	if err != nil {
		c.JSON(paymentStatusCode(err), gin.H{
			"error":   "Charge failed",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) queueStatus(c *gin.Context) {
	counts, err := h.queue.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read queue status",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func requireUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid X-User-ID header"})
		return 0, false
	}
	return userID, true
}

// bindBooking binds the JSON body and stamps in the request context fields.
func bindBooking(c *gin.Context, req interface{}, common *service.BookingRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	common.ClientIP = c.ClientIP()
	common.UserAgent = c.Request.UserAgent()
	return true
}

func respondBooking(c *gin.Context, resp *service.BookingResponse, err error) {
	if err != nil {
		c.JSON(bookingStatusCode(err), gin.H{
			"error":   "Failed to create booking",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func bookingStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrPolicyNotAccepted),
		errors.Is(err, service.ErrInvalidDeadline),
		errors.Is(err, service.ErrPaymentMethodRequired),
		errors.Is(err, service.ErrPriceRequired),
		errors.Is(err, service.ErrVoucherInvalid),
		errors.Is(err, pricing.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrConfigNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func paymentStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidChargeAmount),
		errors.Is(err, service.ErrPaymentMethodRequired):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPaymentModelMismatch):
		return http.StatusConflict
	case isNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
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
