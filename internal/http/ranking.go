package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bibliotek/backend/internal/ranking"
)

// Leaderboard serves ranked user listings.
type Leaderboard interface {
	Top(limit int) ([]ranking.Entry, error)
}

type RankingController struct {
	leaderboard Leaderboard
}

func NewRankingController(leaderboard Leaderboard) *RankingController {
	return &RankingController{leaderboard: leaderboard}
}

// Users returns the top users ordered by reputation points.
func (r *RankingController) Users(c *gin.Context) {
	limit, _ := parsePagination(c, 10, 100)

	entries, err := r.leaderboard.Top(limit)
	if err != nil {
		respondInternalError(c, err, "ranking")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}
