package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/dto"
	"github.com/jerryawoyele/markezon-backend/internal/http/handlers/common"
	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/service"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Create POST /bookings
func (h *BookingHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "service_id и scheduled_time обязательны")
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), userID, service.CreateBookingInput{
		ServiceID:     req.ServiceID,
		ScheduledTime: req.ScheduledTime,
		Location:      req.Location,
		Notes:         req.Notes,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// Get GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), userID, role, bookingID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// List GET /bookings?as=provider|customer
func (h *BookingHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	asProvider := c.Query("as") == "provider"
	limit := common.ParseIntQuery(c, "limit", 20)
	offset := common.ParseIntQuery(c, "offset", 0)

	bookings, err := h.bookings.ListMyBookings(c.Request.Context(), userID, asProvider, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// Confirm POST /bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.bookings.Confirm)
}

// StartService POST /bookings/:id/start
func (h *BookingHandler) StartService(c *gin.Context) {
	h.transition(c, h.bookings.StartService)
}

// MarkServiceDone POST /bookings/:id/done
func (h *BookingHandler) MarkServiceDone(c *gin.Context) {
	h.transition(c, h.bookings.MarkServiceDone)
}

// ConfirmCompletion POST /bookings/:id/complete
func (h *BookingHandler) ConfirmCompletion(c *gin.Context) {
	h.transition(c, h.bookings.ConfirmCompletion)
}

// Cancel POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.bookings.Cancel)
}

// Dispute POST /bookings/:id/dispute
func (h *BookingHandler) Dispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "reason обязателен")
		return
	}

	dispute, err := h.bookings.Dispute(c.Request.Context(), userID, bookingID, req.Reason, req.Details)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// GetEscrow GET /bookings/:id/escrow
func (h *BookingHandler) GetEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.bookings.GetEscrow(c.Request.Context(), userID, bookingID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, escrow)
}

// GetLedger GET /bookings/:id/ledger
func (h *BookingHandler) GetLedger(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	balance, entries, err := h.bookings.GetLedger(c.Request.Context(), userID, role, bookingID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance, "entries": entries})
}

type transitionFunc func(ctx context.Context, actorID, bookingID uuid.UUID) (*models.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, fn transitionFunc) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := fn(c.Request.Context(), userID, bookingID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
