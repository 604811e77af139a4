// Package extract adapts the external statement extraction service.
// The extraction algorithm itself is opaque; this client submits one
// file per call and maps the response into domain types.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/config"
	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/service"
)

// Client talks to the extraction service over HTTP. Endpoint
// configuration is injected at construction; nothing here reads
// ambient state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      service.RetryOptions
}

// NewClient creates an extraction client for the configured endpoint.
func NewClient(endpoints *config.Endpoints) *Client {
	return &Client{
		baseURL: endpoints.ExtractionURL,
		httpClient: &http.Client{
			Timeout: endpoints.Timeout,
		},
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// extractionResponse is the wire shape returned by the service.
type extractionResponse struct {
	ItemRef          string              `json:"item_ref"`
	Institution      string              `json:"institution"`
	AccountType      string              `json:"account_type"`
	AccountNumber    string              `json:"account_number"`
	PeriodStart      string              `json:"statement_period_start"`
	PeriodEnd        string              `json:"statement_period_end"`
	BeginningBalance decimal.NullDecimal `json:"beginning_balance"`
	EndingBalance    decimal.NullDecimal `json:"ending_balance"`
	Confidence       float64             `json:"confidence_score"`
	MatchedAccount   string              `json:"matched_account"`
	Suggestions      []suggestion        `json:"suggested_accounts"`
	Page             pageLocator         `json:"page"`
}

type suggestion struct {
	Account string  `json:"account"`
	Score   float64 `json:"score"`
}

type pageLocator struct {
	Number int `json:"number"`
	Total  int `json:"total"`
}

// ExtractStatement submits one file and returns its structured fields.
// Transport failures are retried with backoff; a rejected file is not.
func (c *Client) ExtractStatement(ctx context.Context, filename string, data []byte) (*model.ExtractionResult, error) {
	var result *model.ExtractionResult

	err := common.WithRetry(ctx, func() error {
		var attemptErr error
		result, attemptErr = c.submitFile(ctx, filename, data)
		return attemptErr
	}, c.retry)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}
	return result, nil
}

func (c *Client) submitFile(ctx context.Context, filename string, data []byte) (*model.ExtractionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	if err := writer.Close(); err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}

	url := c.baseURL + "/statements/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: false}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.RetryableError{Err: err, Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(msg))
		// Server-side trouble is worth retrying; a rejected file is not.
		return nil, &common.RetryableError{Err: err, Retryable: resp.StatusCode >= 500}
	}

	var wire extractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to decode response: %w", err), Retryable: false}
	}

	return wire.toModel()
}

func (r *extractionResponse) toModel() (*model.ExtractionResult, error) {
	result := &model.ExtractionResult{
		Institution:      r.Institution,
		AccountType:      r.AccountType,
		AccountNumber:    r.AccountNumber,
		BeginningBalance: r.BeginningBalance,
		EndingBalance:    r.EndingBalance,
		Confidence:       r.Confidence,
		MatchedAccount:   r.MatchedAccount,
		Page: model.PageLocator{
			Page:       r.Page.Number,
			TotalPages: r.Page.Total,
		},
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return nil, fmt.Errorf("confidence score %f out of range", r.Confidence)
	}

	var err error
	if result.PeriodStart, err = parseDate(r.PeriodStart); err != nil {
		return nil, fmt.Errorf("invalid statement_period_start: %w", err)
	}
	if result.PeriodEnd, err = parseDate(r.PeriodEnd); err != nil {
		return nil, fmt.Errorf("invalid statement_period_end: %w", err)
	}

	for _, s := range r.Suggestions {
		result.Suggestions = append(result.Suggestions, model.AccountSuggestion{
			Account: s.Account,
			Score:   s.Score,
		})
	}

	return result, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}

// FetchPreview returns the renderable page for an item so a human can
// inspect it during review. Consumed by the review UI, not by this core.
func (c *Client) FetchPreview(ctx context.Context, itemRef string) ([]byte, string, error) {
	url := fmt.Sprintf("%s/statements/%s/preview", c.baseURL, itemRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create preview request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch preview: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("preview request returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read preview body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
