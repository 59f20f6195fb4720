package enforcer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/elum-utils/wordfilter/models"
)

const (
	defaultKickPath = "/v2/players/kick"
	defaultBanPath  = "/v3/bans/create"
)

// TShock applies sanctions through the TShock REST API.
type TShock struct {
	client   *resty.Client
	token    string
	kickPath string
	banPath  string
	prefix   string
	now      func() time.Time
}

// TShockOptions configures the enforcer.
type TShockOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// KickPath and BanPath override the REST routes.
	KickPath string
	BanPath  string
	// IdentifierPrefix is prepended to the player id in ban requests.
	// Defaults to "uuid:".
	IdentifierPrefix string
}

// NewTShock creates an enforcer instance.
func NewTShock(opt TShockOptions) (*TShock, error) {
	if strings.TrimSpace(opt.BaseURL) == "" {
		return nil, errors.New("enforcer: base URL is required")
	}
	if strings.TrimSpace(opt.Token) == "" {
		return nil, errors.New("enforcer: REST token is required")
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(opt.KickPath) == "" {
		opt.KickPath = defaultKickPath
	}
	if strings.TrimSpace(opt.BanPath) == "" {
		opt.BanPath = defaultBanPath
	}
	if opt.IdentifierPrefix == "" {
		opt.IdentifierPrefix = "uuid:"
	}
	return &TShock{
		client: resty.New().
			SetTimeout(opt.Timeout).
			SetBaseURL(strings.TrimRight(opt.BaseURL, "/")).
			SetHeader("Accept", "application/json"),
		token:    opt.Token,
		kickPath: opt.KickPath,
		banPath:  opt.BanPath,
		prefix:   opt.IdentifierPrefix,
		now:      time.Now,
	}, nil
}

func (t *TShock) Name() string { return "tshock" }

// Enforce kicks the player, or bans and then kicks for ban sanctions.
// A ban without a positive duration is permanent.
func (t *TShock) Enforce(ctx context.Context, s models.Sanction) error {
	if s.Ban {
		if err := t.ban(ctx, s); err != nil {
			return err
		}
	}
	return t.kick(ctx, s)
}

func (t *TShock) ban(ctx context.Context, s models.Sanction) error {
	if strings.TrimSpace(s.PlayerID) == "" {
		return errors.New("enforcer: ban requires a player id")
	}
	params := map[string]string{
		"token":      t.token,
		"identifier": t.prefix + s.PlayerID,
		"reason":     s.Reason,
	}
	if s.Duration > 0 {
		start := t.now().UTC()
		params["start"] = start.Format(time.RFC3339)
		params["end"] = start.Add(s.Duration).Format(time.RFC3339)
	}
	return t.call(ctx, t.banPath, params)
}

func (t *TShock) kick(ctx context.Context, s models.Sanction) error {
	player := s.PlayerName
	if strings.TrimSpace(player) == "" {
		player = s.PlayerID
	}
	if strings.TrimSpace(player) == "" {
		return errors.New("enforcer: kick requires a player")
	}
	return t.call(ctx, t.kickPath, map[string]string{
		"token":  t.token,
		"player": player,
		"reason": s.Reason,
	})
}

type restStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (t *TShock) call(ctx context.Context, path string, params map[string]string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Post(path)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("enforcer: %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return checkStatus(path, resp.Body())
}

// checkStatus reads the status field TShock embeds in 200 responses.
func checkStatus(path string, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var st restStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return nil
	}
	if st.Status == "" {
		return nil
	}
	code, err := strconv.Atoi(st.Status)
	if err != nil {
		return fmt.Errorf("enforcer: %s: unexpected status %q", path, st.Status)
	}
	if code >= http.StatusMultipleChoices {
		return fmt.Errorf("enforcer: %s: status %d: %s", path, code, st.Error)
	}
	return nil
}
