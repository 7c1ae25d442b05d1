package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bibliotek/backend/internal/entities"
	"github.com/bibliotek/backend/internal/forum"
	"github.com/bibliotek/backend/internal/reputation"
)

// ReputationService is the subset of the reputation service used by HTTP handlers.
type ReputationService interface {
	GetOrCreate(userID uint) (*entities.ReputationRecord, error)
	AwardForReading(userID, bookID uint, pagesRead int) (*entities.ReputationRecord, error)
	ListActivity(userID uint, limit, offset int) ([]entities.ReadingLogEntry, int64, error)
	DeleteAccount(userID uint) error
}

// StatusResponse is the public view of a user's reputation record.
type StatusResponse struct {
	Points int64 `json:"points"`
	Level  int   `json:"level"`
}

// ReadingRequest reports a finished reading session.
type ReadingRequest struct {
	BookID    uint `json:"book_id" binding:"required"`
	PagesRead int  `json:"pages_read" binding:"required,gt=0"`
}

type GamificationController struct {
	service ReputationService
	hooks   *forum.Hooks
}

func NewGamificationController(service ReputationService, hooks *forum.Hooks) *GamificationController {
	return &GamificationController{
		service: service,
		hooks:   hooks,
	}
}

// Status returns the caller's current points and level, creating the
// zero-state record on first access.
func (g *GamificationController) Status(c *gin.Context) {
	userID := GetUserID(c)

	record, err := g.service.GetOrCreate(userID)
	if err != nil {
		if errors.Is(err, reputation.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "gamification status")
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Points: record.Points, Level: record.Level})
}

// RegisterReading reports a reading session. The session is always logged;
// points are granted only when the per-user rate limit allows it.
func (g *GamificationController) RegisterReading(c *gin.Context) {
	userID := GetUserID(c)

	var req ReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "book_id and a positive pages_read are required")
		return
	}

	record, err := g.service.AwardForReading(userID, req.BookID, req.PagesRead)
	if err != nil {
		if errors.Is(err, reputation.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "register reading")
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Points: record.Points, Level: record.Level})
}

// History returns the caller's reading log, newest first.
func (g *GamificationController) History(c *gin.Context) {
	userID := GetUserID(c)
	limit, offset := parsePagination(c, 50, 200)

	entries, total, err := g.service.ListActivity(userID, limit, offset)
	if err != nil {
		if errors.Is(err, reputation.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "reading history")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}

// TopicCreated awards points for starting a forum topic.
func (g *GamificationController) TopicCreated(c *gin.Context) {
	g.forumEvent(c, g.hooks.TopicCreated, "forum topic award")
}

// ReplyCreated awards points for replying in a forum topic.
func (g *GamificationController) ReplyCreated(c *gin.Context) {
	g.forumEvent(c, g.hooks.ReplyCreated, "forum reply award")
}

func (g *GamificationController) forumEvent(c *gin.Context, award func(uint) error, context string) {
	userID := GetUserID(c)

	if err := award(userID); err != nil {
		if errors.Is(err, reputation.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, context)
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "award recorded"})
}
