package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elum-utils/wordfilter/models"
)

type ProcessMessageReq struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Group      string `json:"group"`
	Text       string `json:"text" binding:"required"`
}

// ProcessMessage runs one chat line through the moderator, escalation
// included.
func ProcessMessage(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {

		// Get the request body
		var req ProcessMessageReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res := m.Process(c.Request.Context(), models.Message{
			PlayerID:   req.PlayerID,
			PlayerName: req.PlayerName,
			Group:      req.Group,
			Text:       req.Text,
		})
		c.JSON(http.StatusOK, gin.H{"data": res})

	}
}

func Stats(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := m.Policy()
		policy := gin.H{
			"kick_at":          p.KickAt,
			"ban_at":           p.BanAt,
			"ban_duration_sec": int64(p.BanDuration.Seconds()),
			"reset_window_sec": int64(p.ResetWindow.Seconds()),
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"engine":  m.EngineStats(),
			"actions": m.Metrics(),
			"policy":  policy,
		}})
	}
}
