package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
)

var (
	ErrInvalidURL       = errors.New("invalid callback url")
	ErrMetadataEndpoint = errors.New("callback url targets a cloud metadata endpoint")
	ErrInternalHost     = errors.New("callback url targets an internal address")
)

// CallbackSecretHeader carries the per-run callback secret.
const CallbackSecretHeader = "X-Inheritance-Callback-Secret"

// NotificationPayload represents the JSON payload sent to the callback URL
type NotificationPayload struct {
	RunID           string               `json:"run_id"`
	Status          models.RunStatus     `json:"status"`
	CreatedAtUnixMs int64                `json:"created_at_unix_ms"`
	StartedAtUnixMs int64                `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64                `json:"ended_at_unix_ms,omitempty"`
	Error           string               `json:"error,omitempty"`
	Requested       int                  `json:"requested,omitempty"`
	Succeeded       int                  `json:"succeeded,omitempty"`
	Skipped         int                  `json:"skipped,omitempty"`
	Summary         *models.SweepSummary `json:"summary,omitempty"`
	Timestamp       int64                `json:"timestamp"` // When notification was sent
}

// Notifier posts run completion notifications to client callbacks
type Notifier struct {
	httpClient  *http.Client
	maxAttempts int
	backoff     utils.BackoffStrategy
}

// NewNotifier creates a notifier that retries up to three times with
// exponential backoff starting at one second.
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: 4,
		backoff:     utils.NewExponentialBackoff(time.Second, 30*time.Second, 2, true),
	}
}

// WithRetry overrides the retry policy.
func (n *Notifier) WithRetry(maxAttempts int, backoff utils.BackoffStrategy) *Notifier {
	n.maxAttempts = maxAttempts
	n.backoff = backoff
	return n
}

func getCallbackSecret(rec *RunRecord) string {
	if rec == nil || rec.Input == nil {
		return ""
	}
	return rec.Input.CallbackSecret
}

// Notify sends a notification to the callback URL asynchronously.
// A "{run_id}" placeholder in the URL is replaced by the run id.
func (n *Notifier) Notify(callbackURL string, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}
	if rec == nil {
		logger.Warn("cannot notify: invalid run record", "callback_url", callbackURL)
		return
	}
	if err := validateCallbackURL(callbackURL); err != nil {
		logger.Warn("refusing callback url", "run_id", rec.Run.ID, "callback_url", callbackURL, "error", err)
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", url.PathEscape(rec.Run.ID))
	payload := buildPayload(rec)

	go func() {
		if err := n.send(context.Background(), finalURL, callbackSecret, payload); err != nil {
			logger.Error("failed to send notification after retries",
				"callback_url", finalURL,
				"run_id", payload.RunID,
				"status", payload.Status,
				"max_attempts", n.maxAttempts,
				"last_error", err)
		}
	}()
}

func buildPayload(rec *RunRecord) NotificationPayload {
	payload := NotificationPayload{
		RunID:           rec.Run.ID,
		Status:          rec.Run.Status,
		CreatedAtUnixMs: rec.Run.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Run.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Run.EndedAtUnixMs,
		Error:           rec.Run.Error,
		Summary:         rec.Summary,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}
	if rec.Result != nil {
		payload.Requested = rec.Result.Requested
		payload.Succeeded = rec.Result.Succeeded
		payload.Skipped = rec.Result.Skipped
	}
	return payload
}

// send performs the HTTP POST with retries
func (n *Notifier) send(ctx context.Context, callbackURL, callbackSecret string, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	return utils.Retry(ctx, n.maxAttempts, n.backoff, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "inheritance-core/1.0")
		if callbackSecret != "" {
			req.Header.Set(CallbackSecretHeader, callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt+1,
				"error", err)
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent",
				"run_id", payload.RunID,
				"status", payload.Status,
				"status_code", resp.StatusCode)
			return nil
		}

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"status_code", resp.StatusCode,
			"response_body", string(snippet),
			"attempt", attempt+1)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	})
}

var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"fd00:ec2::254":            true,
	"metadata.google.internal": true,
	"metadata":                 true,
}

// validateCallbackURL accepts http(s) URLs whose host is a name or a public
// IP literal. localhost is allowed by name for local development; loopback,
// private, link-local and unspecified IP literals are rejected.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(strings.ReplaceAll(raw, "{run_id}", "run"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	if metadataHosts[host] {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsUnspecified() || isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrInternalHost, host)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
