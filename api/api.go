// Package api exposes the moderator over HTTP for administration.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/elum-utils/wordfilter/engine"
	"github.com/elum-utils/wordfilter/escalation"
	"github.com/elum-utils/wordfilter/interfaces"
	"github.com/elum-utils/wordfilter/models"
)

// Moderator is the part of core.Core the API drives.
type Moderator interface {
	Process(ctx context.Context, message models.Message) models.Result
	AddRule(ctx context.Context, word, replacement string) error
	RemoveRule(ctx context.Context, word string) (bool, error)
	Rules() []models.Rule
	Reload(ctx context.Context) error
	PlayerWarning(ctx context.Context, playerID string) models.PlayerWarning
	ResetWarnings(ctx context.Context, playerID string) bool
	AllWarnings(ctx context.Context) map[string]models.PlayerWarning
	ActiveWarnings(ctx context.Context) []models.PlayerWarning
	Sweep(ctx context.Context) int
	Policy() escalation.Policy
	Metrics() map[models.ActionKind]int64
	EngineStats() engine.Stats
}

// Server is the API server instance
type Server struct {
	Moderator Moderator
	// Token, when set, is required as a bearer token on every route.
	Token string
	// TokenHash is a bcrypt hash of the token. It takes precedence over
	// Token.
	TokenHash string
	Logger    interfaces.Logger
}

// Setup mounts the API routes to the given group
func (s *Server) Setup(g *gin.RouterGroup) {

	// Everything requires the admin token when one is configured
	switch {
	case s.TokenHash != "":
		g.Use(RequireTokenHash(s.TokenHash))
	case s.Token != "":
		g.Use(RequireToken(s.Token))
	default:
		if s.Logger != nil {
			s.Logger.Warn("admin api has no token, rule and warning changes are open to anyone who can reach it", map[string]any{
				"base_path": g.BasePath(),
			})
		}
	}

	g.GET("/rules", ListRules(s.Moderator))
	g.PUT("/rules/:word", PutRule(s.Moderator))
	g.DELETE("/rules/:word", DeleteRule(s.Moderator))
	g.POST("/rules/reload", ReloadRules(s.Moderator))

	g.GET("/warnings", ListWarnings(s.Moderator))
	g.GET("/warnings/:id", GetWarning(s.Moderator))
	g.DELETE("/warnings/:id", ResetWarning(s.Moderator))
	g.POST("/warnings/sweep", SweepWarnings(s.Moderator))

	g.POST("/messages", ProcessMessage(s.Moderator))
	g.GET("/stats", Stats(s.Moderator))

}

// RequireToken rejects requests without the bearer token. An empty token
// disables the check.
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireTokenHash is RequireToken against a bcrypt hash.
func RequireTokenHash(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(got)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
