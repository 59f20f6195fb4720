package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/elum-utils/wordfilter/adapters/storage"
	"github.com/elum-utils/wordfilter/core"
	"github.com/elum-utils/wordfilter/escalation"
	"github.com/elum-utils/wordfilter/models"
)

var _ Moderator = (*core.Core)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, token string) (*gin.Engine, *core.Core, *storage.MemoryAdapter) {
	t.Helper()
	st := storage.NewMemoryAdapter()
	c := core.New(core.Options{
		RuleStorage:    st,
		WarningStorage: st,
		Policy: escalation.Policy{
			KickAt:      3,
			BanAt:       5,
			BanDuration: time.Hour,
			ResetWindow: 30 * time.Minute,
		},
		ImmunityGroups: []string{"admin"},
	})
	r := gin.New()
	(&Server{Moderator: c, Token: token}).Setup(r.Group("v1"))
	return r, c, st
}

func do(t *testing.T, r http.Handler, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestRequireToken(t *testing.T) {
	r, _, _ := newRouter(t, "s3cret")

	code, body := do(t, r, http.MethodGet, "/v1/rules", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["error"])

	code, _ = do(t, r, http.MethodGet, "/v1/rules", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, r, http.MethodGet, "/v1/rules", nil, "s3cret")
	assert.Equal(t, http.StatusOK, code)
}

func TestRequireTokenHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	_, c, _ := newRouter(t, "")
	r := gin.New()
	(&Server{Moderator: c, Token: "ignored", TokenHash: string(hash)}).Setup(r.Group("v1"))

	code, _ := do(t, r, http.MethodGet, "/v1/rules", nil, "ignored")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = do(t, r, http.MethodGet, "/v1/rules", nil, "s3cret")
	assert.Equal(t, http.StatusOK, code)
}

type warnLogger struct {
	warns []string
}

func (l *warnLogger) Debug(string, map[string]any) {}
func (l *warnLogger) Info(string, map[string]any)  {}
func (l *warnLogger) Error(string, map[string]any) {}

func (l *warnLogger) Warn(msg string, _ map[string]any) {
	l.warns = append(l.warns, msg)
}

func TestSetupWarnsWithoutToken(t *testing.T) {
	_, c, _ := newRouter(t, "")

	l := &warnLogger{}
	(&Server{Moderator: c, Logger: l}).Setup(gin.New().Group("v1"))
	require.Len(t, l.warns, 1)
	assert.Contains(t, l.warns[0], "no token")

	l = &warnLogger{}
	(&Server{Moderator: c, Token: "s3cret", Logger: l}).Setup(gin.New().Group("v1"))
	(&Server{Moderator: c, TokenHash: "$2a$04$abc", Logger: l}).Setup(gin.New().Group("v1"))
	assert.Empty(t, l.warns)
}

func TestRuleRoutes(t *testing.T) {
	r, c, st := newRouter(t, "")

	code, _ := do(t, r, http.MethodPut, "/v1/rules/Darn", PutRuleReq{Replacement: "****"}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []models.Rule{{Word: "darn", Replacement: "****"}}, c.Rules())

	code, body := do(t, r, http.MethodGet, "/v1/rules", nil, "")
	require.Equal(t, http.StatusOK, code)
	rules := body["data"].([]any)
	require.Len(t, rules, 1)
	assert.Equal(t, "darn", rules[0].(map[string]any)["word"])

	code, _ = do(t, r, http.MethodPut, "/v1/rules/%20", PutRuleReq{}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodDelete, "/v1/rules/darn", nil, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodDelete, "/v1/rules/darn", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, st.UpsertRule(context.Background(), models.Rule{Word: "heck", Replacement: "h*ck"}))
	code, body = do(t, r, http.MethodPost, "/v1/rules/reload", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])
}

func TestMessageAndWarningRoutes(t *testing.T) {
	r, c, _ := newRouter(t, "")
	require.NoError(t, c.AddRule(context.Background(), "darn", "****"))

	msg := ProcessMessageReq{PlayerID: "u1", PlayerName: "alice", Text: "darn it"}
	code, body := do(t, r, http.MethodPost, "/v1/messages", msg, "")
	require.Equal(t, http.StatusOK, code)
	res := body["data"].(map[string]any)
	assert.Equal(t, "**** it", res["text"])
	assert.Equal(t, true, res["matched"])
	assert.Equal(t, "warn", res["action"].(map[string]any)["kind"])

	code, _ = do(t, r, http.MethodPost, "/v1/messages", ProcessMessageReq{PlayerID: "u1"}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, r, http.MethodGet, "/v1/warnings/u1", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	code, body = do(t, r, http.MethodGet, "/v1/warnings", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].([]any), 1)

	code, _ = do(t, r, http.MethodDelete, "/v1/warnings/u1", nil, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodDelete, "/v1/warnings/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, r, http.MethodGet, "/v1/warnings", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["data"].([]any))

	code, body = do(t, r, http.MethodGet, "/v1/warnings?all=true", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].([]any), 1)

	code, body = do(t, r, http.MethodPost, "/v1/warnings/sweep", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["data"].(map[string]any)["reset"])
}

func TestStatsRoute(t *testing.T) {
	r, c, _ := newRouter(t, "")
	require.NoError(t, c.AddRule(context.Background(), "darn", "****"))
	c.Process(context.Background(), models.Message{PlayerID: "u1", Text: "darn"})

	code, body := do(t, r, http.MethodGet, "/v1/stats", nil, "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["actions"].(map[string]any)["warn"])
	policy := data["policy"].(map[string]any)
	assert.Equal(t, float64(3), policy["kick_at"])
	assert.Equal(t, float64(3600), policy["ban_duration_sec"])
	assert.NotNil(t, data["engine"])
}
