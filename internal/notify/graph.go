package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

const (
	graphBaseURL     = "https://graph.microsoft.com/v1.0"
	graphScope       = "https://graph.microsoft.com/.default"
	tokenURLTemplate = "https://login.microsoftonline.com/%s/oauth2/v2.0/token" //nolint:gosec // URL template, not a credential

	mailMaxAttempts  = 4
	mailRetryInitial = 1 * time.Second
	mailRetryMax     = 30 * time.Second
	mailHTTPTimeout  = 30 * time.Second
)

var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// checkCredentials verifies the app registration fields. Strict mode
// additionally requires GUID-shaped tenant and client IDs, used when a
// user saves settings rather than at send time.
func checkCredentials(cfg *types.GraphConfig, strict bool) error {
	fields := []struct {
		value, label string
		guid         bool
	}{
		{cfg.TenantID, "tenant ID", true},
		{cfg.ClientID, "client ID", true},
		{cfg.ClientSecret, "client secret", false},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.label)
		}
		if strict && f.guid && !guidPattern.MatchString(f.value) {
			return fmt.Errorf("%s must be a valid GUID", f.label)
		}
	}
	return nil
}

// GraphClient sends mail through Microsoft Graph with app-only
// client-credentials auth. The oauth2 transport caches and refreshes
// tokens on its own.
type GraphClient struct {
	fromAddress string
	httpClient  *http.Client
}

// NewGraphClient builds a client for the configured shared mailbox.
func NewGraphClient(cfg *types.GraphConfig) (*GraphClient, error) {
	if err := checkCredentials(cfg, false); err != nil {
		return nil, err
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("from address (shared mailbox) is required")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLTemplate, cfg.TenantID),
		Scopes:       []string{graphScope},
	}

	// Token acquisition goes through a client with a timeout so it
	// cannot hang the notifier.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient,
		&http.Client{Timeout: mailHTTPTimeout})

	return &GraphClient{
		fromAddress: cfg.FromAddress,
		httpClient:  creds.Client(ctx),
	}, nil
}

// SendMail posts a plain-text message to the given recipients.
func (c *GraphClient) SendMail(recipients []string, subject, body string) error {
	payload, err := buildMailPayload(recipients, subject, body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", graphBaseURL, url.PathEscape(c.fromAddress))
	backoff := util.NewBackoff(mailRetryInitial, mailRetryMax)

	var lastErr error
	for attempt := range mailMaxAttempts {
		if attempt > 0 {
			time.Sleep(backoff.Next())
		}
		done, err := c.postMail(endpoint, payload)
		if done {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// postMail performs one send attempt. done=false means the failure is
// transient and the caller may retry.
func (c *GraphClient) postMail(endpoint string, payload []byte) (done bool, err error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return true, util.WrapError("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, util.WrapError("send request", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusTooManyRequests:
		honorRetryAfter(resp.Header.Get("Retry-After"))
		return false, fmt.Errorf("graph API rate limited (429): %s", respBody)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return false, fmt.Errorf("graph API returned %d: %s", resp.StatusCode, respBody)
	default:
		return true, fmt.Errorf("graph API error %d: %s", resp.StatusCode, respBody)
	}
}

func honorRetryAfter(header string) {
	if header == "" {
		return
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		time.Sleep(time.Duration(seconds) * time.Second)
	}
}

// buildMailPayload assembles the sendMail body, dropping blank
// recipient entries.
func buildMailPayload(recipients []string, subject, body string) ([]byte, error) {
	type emailAddress struct {
		Address string `json:"address"`
	}
	type recipient struct {
		EmailAddress emailAddress `json:"emailAddress"`
	}

	var to []recipient
	for _, addr := range recipients {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, recipient{EmailAddress: emailAddress{Address: addr}})
		}
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("no valid recipients")
	}

	msg := map[string]any{
		"message": map[string]any{
			"subject": subject,
			"body": map[string]string{
				"contentType": "Text",
				"content":     body,
			},
			"toRecipients": to,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, util.WrapError("marshal request", err)
	}
	return data, nil
}

// ValidateAuth checks that the credentials yield a token and that the
// sender mailbox exists. A 403 still passes: the token is valid but the
// app registration only holds Mail.Send, not User.Read.
func (c *GraphClient) ValidateAuth() error {
	endpoint := fmt.Sprintf("%s/users/%s", graphBaseURL, url.PathEscape(c.fromAddress))
	req, err := http.NewRequest(http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return util.WrapError("create validation request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "oauth2") || strings.Contains(err.Error(), "token") {
			return fmt.Errorf("authentication failed: %w", err)
		}
		return util.WrapError("run validation request", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusForbidden:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("mailbox %s not found", c.fromAddress)
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed: invalid credentials")
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("validation failed with status %d: %s", resp.StatusCode, body)
	}
}

// ValidateConfig checks a saved configuration for completeness,
// including GUID-shaped IDs.
func ValidateConfig(cfg *types.GraphConfig) error {
	if err := checkCredentials(cfg, true); err != nil {
		return err
	}
	if cfg.FromAddress == "" {
		return fmt.Errorf("from address (shared mailbox) is required")
	}
	if cfg.Recipients == "" {
		return fmt.Errorf("recipients are required")
	}
	return nil
}

// IsConfigured reports whether every field needed to send is set.
func IsConfigured(cfg *types.GraphConfig) bool {
	return util.IsConfigured(cfg.TenantID, cfg.ClientID, cfg.ClientSecret,
		cfg.FromAddress, cfg.Recipients)
}

// ParseRecipients splits a comma-separated recipients string.
func ParseRecipients(recipients string) []string {
	var result []string
	for r := range strings.SplitSeq(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			result = append(result, r)
		}
	}
	return result
}
