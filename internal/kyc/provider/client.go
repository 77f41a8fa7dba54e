// Package provider implements the signed HTTP client for the
// identity-verification provider (Sumsub). Every request carries a
// timestamped HMAC per the provider's app-token scheme.
package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/KarimBkr/MyTsango/internal/platform/config"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// Client talks to the provider's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appToken   string
	secretKey  string
	levelName  string
	tokenTTL   time.Duration

	// now is replaceable in tests to pin the signature timestamp.
	now func() time.Time
}

func NewClient(cfg config.SumsubConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		appToken:   cfg.AppToken,
		secretKey:  cfg.SecretKey,
		levelName:  cfg.LevelName,
		tokenTTL:   cfg.TokenTTL,
		now:        time.Now,
	}
}

// sign computes the provider's request signature: hex HMAC-SHA256 over
// timestamp + METHOD + path + body.
func (c *Client) sign(method, path string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}

	ts := c.now().Unix()
	req.Header.Set("X-App-Token", c.appToken)
	req.Header.Set("X-App-Access-Ts", strconv.FormatInt(ts, 10))
	req.Header.Set("X-App-Access-Sig", c.sign(method, path, ts, body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: provider request failed: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: provider returned %d: %s", sentinel.ErrUnavailable, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}

// CreateApplicant registers the user and returns the applicant id.
func (c *Client) CreateApplicant(ctx context.Context, externalUserID string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"externalUserId": externalUserID,
		"levelName":      c.levelName,
	})
	if err != nil {
		return "", fmt.Errorf("marshal applicant payload: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	path := "/resources/applicants?levelName=" + c.levelName
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", fmt.Errorf("create applicant: %w", err)
	}
	return resp.ID, nil
}

// CreateAccessToken mints a short-lived SDK token for the user.
func (c *Client) CreateAccessToken(ctx context.Context, externalUserID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	path := fmt.Sprintf("/resources/accessTokens?userId=%s&levelName=%s&ttlInSecs=%d",
		externalUserID, c.levelName, int(c.tokenTTL.Seconds()))
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", fmt.Errorf("create access token: %w", err)
	}
	return resp.Token, nil
}

// ApplicantStatus is the provider's current view of an applicant review.
type ApplicantStatus struct {
	ReviewStatus string `json:"reviewStatus"`
	ReviewResult *struct {
		ReviewAnswer string   `json:"reviewAnswer"`
		RejectLabels []string `json:"rejectLabels"`
	} `json:"reviewResult"`
}

// GetApplicantStatus fetches the provider-side review status, used for
// support tooling and manual reconciliation.
func (c *Client) GetApplicantStatus(ctx context.Context, applicantID string) (*ApplicantStatus, error) {
	var resp ApplicantStatus
	path := "/resources/applicants/" + applicantID + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get applicant status: %w", err)
	}
	return &resp, nil
}
