package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elum-utils/wordfilter/models"
)

// ListWarnings returns the players with active warnings. With ?all=true
// clean records are included too.
func ListWarnings(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, _ := strconv.ParseBool(c.Query("all"))
		if !all {
			c.JSON(http.StatusOK, gin.H{"data": m.ActiveWarnings(c.Request.Context())})
			return
		}
		records := m.AllWarnings(c.Request.Context())
		out := make([]models.PlayerWarning, 0, len(records))
		for _, w := range records {
			out = append(out, w)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
		c.JSON(http.StatusOK, gin.H{"data": out})
	}
}

func GetWarning(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": m.PlayerWarning(c.Request.Context(), c.Param("id"))})
	}
}

func ResetWarning(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.ResetWarnings(c.Request.Context(), c.Param("id")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{}})
	}
}

func SweepWarnings(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"reset": m.Sweep(c.Request.Context())}})
	}
}
