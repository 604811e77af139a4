package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/config"
	"github.com/ledgerflow/ledgerflow/internal/service"
)

const sampleResponse = `{
	"item_ref": "ref-123",
	"institution": "Acme Brokerage",
	"account_type": "brokerage",
	"account_number": "****1234",
	"statement_period_start": "2025-03-01",
	"statement_period_end": "2025-03-31",
	"beginning_balance": "900.00",
	"ending_balance": "1000.00",
	"confidence_score": 0.92,
	"matched_account": "brokerage-1",
	"suggested_accounts": [
		{"account": "brokerage-1", "score": 0.92},
		{"account": "ira-2", "score": 0.41}
	],
	"page": {"number": 1, "total": 4}
}`

// testClient builds a client against the test server with retry delays
// shrunk so failure-path tests stay fast.
func testClient(server *httptest.Server) *Client {
	client := NewClient(&config.Endpoints{
		ExtractionURL: server.URL,
		Timeout:       5 * time.Second,
	})
	client.retry = service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return client
}

func TestExtractStatement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/statements/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "march.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := testClient(server)
	result, err := client.ExtractStatement(context.Background(), "march.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "Acme Brokerage", result.Institution)
	assert.Equal(t, "brokerage", result.AccountType)
	assert.Equal(t, "****1234", result.AccountNumber)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), result.PeriodStart)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), result.PeriodEnd)
	require.True(t, result.EndingBalance.Valid)
	assert.True(t, result.EndingBalance.Decimal.Equal(decimal.RequireFromString("1000.00")))
	assert.InDelta(t, 0.92, result.Confidence, 0.0001)
	assert.Equal(t, "brokerage-1", result.MatchedAccount)
	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, "ira-2", result.Suggestions[1].Account)
	assert.Equal(t, 1, result.Page.Page)
	assert.Equal(t, 4, result.Page.TotalPages)
}

func TestExtractStatementPartialResponse(t *testing.T) {
	// The service may return only some fields at lower confidence;
	// absent balances come back as null decimals, not errors.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"institution": "Acme Brokerage",
			"statement_period_end": "2025-03-31",
			"confidence_score": 0.55
		}`))
	}))
	defer server.Close()

	client := testClient(server)
	result, err := client.ExtractStatement(context.Background(), "march.pdf", []byte("data"))
	require.NoError(t, err)

	assert.False(t, result.EndingBalance.Valid)
	assert.Empty(t, result.MatchedAccount)
	assert.True(t, result.PeriodStart.IsZero())
	assert.InDelta(t, 0.55, result.Confidence, 0.0001)
}

func TestExtractStatementRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unreadable document", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := testClient(server)
	_, err := client.ExtractStatement(context.Background(), "march.pdf", []byte("data"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractStatementRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "temporarily overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := testClient(server)
	result, err := client.ExtractStatement(context.Background(), "march.pdf", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "brokerage-1", result.MatchedAccount)
}

func TestExtractStatementInvalidConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"confidence_score": 1.7}`))
	}))
	defer server.Close()

	client := testClient(server)
	_, err := client.ExtractStatement(context.Background(), "march.pdf", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestFetchPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statements/ref-123/preview", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	client := testClient(server)
	data, contentType, err := client.FetchPreview(context.Background(), "ref-123")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestFetchPreviewNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such item", http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server)
	_, _, err := client.FetchPreview(context.Background(), "missing")
	assert.Error(t, err)
}
