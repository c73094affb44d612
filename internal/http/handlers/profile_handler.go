package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/dto"
	"github.com/jerryawoyele/markezon-backend/internal/http/handlers/common"
	"github.com/jerryawoyele/markezon-backend/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// CheckUsername GET /profiles/username-check?username=...
// Проверка доступности без побочных эффектов; собственное имя
// авторизованного пользователя считается доступным.
func (h *ProfileHandler) CheckUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		common.RespondBadRequest(c, "параметр username обязателен")
		return
	}

	// Анонимная проверка допустима: excludeUserID остаётся нулевым.
	excludeID := uuid.Nil
	if userID, err := common.CurrentUserID(c); err == nil {
		excludeID = userID
	}

	status, err := h.profiles.CheckUsername(c.Request.Context(), username, excludeID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UsernameAvailabilityResponse{Username: username, Status: status})
}

// ChangeUsername PUT /profiles/me/username
func (h *ProfileHandler) ChangeUsername(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ChangeUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "username обязателен")
		return
	}

	if err := h.profiles.ChangeUsername(c.Request.Context(), userID, req.Username); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "имя пользователя изменено", nil)
}

// GetMyProfile GET /profiles/me
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	h.respondProfile(c, userID)
}

// GetProfile GET /profiles/:id
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	h.respondProfile(c, userID)
}

// UpdateMyProfile PUT /profiles/me
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "display_name обязателен")
		return
	}

	in := service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Location:    req.Location,
	}
	if req.PhotoID != nil {
		photoID, err := uuid.Parse(*req.PhotoID)
		if err != nil {
			common.RespondBadRequest(c, "неверный photo_id")
			return
		}
		in.PhotoID = &photoID
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Follow POST /profiles/:id/follow
func (h *ProfileHandler) Follow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	followeeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.profiles.Follow(c.Request.Context(), userID, followeeID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "подписка оформлена", nil)
}

// Unfollow DELETE /profiles/:id/follow
func (h *ProfileHandler) Unfollow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	followeeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.profiles.Unfollow(c.Request.Context(), userID, followeeID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "подписка отменена", nil)
}

// ResyncCounters POST /profiles/:id/resync-counters (admin)
func (h *ProfileHandler) ResyncCounters(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.profiles.ResyncFollowerCounts(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// RegisterPayoutAccount POST /profiles/me/payout-account
func (h *ProfileHandler) RegisterPayoutAccount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.RegisterPayoutAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "provider и external_account_id обязательны")
		return
	}

	account, err := h.profiles.RegisterPayoutAccount(c.Request.Context(), userID, req.Provider, req.ExternalAccountID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// GetMyPayoutAccount GET /profiles/me/payout-account
func (h *ProfileHandler) GetMyPayoutAccount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	account, err := h.profiles.GetPayoutAccount(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// VerifyPayoutAccount PUT /admin/payout-accounts/:id/verify (admin)
func (h *ProfileHandler) VerifyPayoutAccount(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.VerifyPayoutAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.profiles.ConfirmPayoutVerification(c.Request.Context(), userID, req.Verified); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "статус проверки обновлён", nil)
}

func (h *ProfileHandler) respondProfile(c *gin.Context, userID uuid.UUID) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
