package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/applicant"
)

const (
	contentType      = "application/json"
	DefaultUserAgent = "rubric-evaluator"
	maxErrorBody     = 512
)

// Webhook POSTs reports as JSON to a downstream URL.
type Webhook struct {
	URL        string
	UserAgent  string
	HTTPClient *http.Client

	token  string
	logger *zap.Logger
}

// NewWebhook creates a webhook target. token is sent as a bearer token when set.
func NewWebhook(url, token string, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		URL:       url,
		UserAgent: DefaultUserAgent,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:  token,
		logger: logger,
	}
}

func (w *Webhook) Deliver(ctx context.Context, report *applicant.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req = w.setHeaders(req)

	w.logger.Debug("make request", zap.String("url", req.URL.String()), zap.Int("bytes", len(body)))
	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	w.logger.Info("report delivered",
		zap.String("url", w.URL),
		zap.Int("application_id", report.ApplicationID),
	)
	return nil
}

func (w *Webhook) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Content-Type", contentType)
	if w.UserAgent != "" {
		req.Header.Set("User-Agent", w.UserAgent)
	}
	if w.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", w.token))
	}
	return req
}
