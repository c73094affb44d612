package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/http/handlers/common"
	"github.com/jerryawoyele/markezon-backend/internal/service"
)

type FeedHandler struct {
	feed *service.FeedService
}

func NewFeedHandler(feed *service.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// GetFeed GET /feed?page=0
// Сессия просмотра задаётся заголовком X-Session-ID; при его отсутствии
// показы дедуплицируются в рамках сгенерированной одноразовой сессии.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	page := common.ParseIntQuery(c, "page", 0)

	feedPage, err := h.feed.GetFeed(c.Request.Context(), userID, sessionID, page)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedPage)
}

// RecordClick POST /feed/promotions/:id/click
func (h *FeedHandler) RecordClick(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	promotionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.feed.RecordPromotionClick(c.Request.Context(), promotionID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "переход учтён", nil)
}
