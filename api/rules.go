package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elum-utils/wordfilter/core"
)

type PutRuleReq struct {
	Replacement string `json:"replacement"`
}

func ListRules(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": m.Rules()})
	}
}

func PutRule(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {

		// Get the request body
		var req PutRuleReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := m.AddRule(c.Request.Context(), c.Param("word"), req.Replacement); err != nil {
			if errors.Is(err, core.ErrEmptyWord) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// The rule is active in memory even though it was not stored
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": gin.H{}})

	}
}

func DeleteRule(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := m.RemoveRule(c.Request.Context(), c.Param("word"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrEmptyWord) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{}})
	}
}

func ReloadRules(m Moderator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Reload(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"count": len(m.Rules())}})
	}
}
