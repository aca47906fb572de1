package report

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-pnl-reporter/internal/models"
	"mt5-pnl-reporter/internal/runner"
)

func sampleResult() runner.Result {
	accounts := []models.AccountSummary{
		{
			Login: 111, Server: "Broker-Demo", Name: "primary",
			Status: models.StatusSucceeded,
			Positions: 2, Orders: 1,
			CurrentPnL: 150, PotentialLoss: -500, PotentialProfit: 1000,
			ProfitablePositions: 2, TotalVolume: 0.3, UniqueSymbols: 1,
			PositionResults: []models.PnLResult{
				{Ticket: 1, Symbol: "EURUSD", Type: models.RecordPosition, Kind: "BUY",
					Volume: 0.1, Entry: 1.1000, CurrentPnL: models.Float64(50)},
				{Ticket: 2, Symbol: "EURUSD", Type: models.RecordPosition, Kind: "SELL",
					Volume: 0.2, Entry: 1.1100, CurrentPnL: models.Float64(100)},
			},
			OrderResults: []models.PnLResult{
				{Ticket: 3, Symbol: "EURUSD", Type: models.RecordOrder, Kind: "BUY_LIMIT",
					Volume: 0.1, Entry: 1.0900, PotentialProfit: models.Float64(1000)},
			},
			ProcessedAt: time.Now().UTC(),
		},
		{
			Login: 222, Server: "Broker-Live",
			Status: models.StatusFailed,
			Reason: models.ReasonConnectionExhausted,
			Error:  "failed after 3 attempts: connection refused",
		},
	}

	combined := models.CombinedSummary{
		RunID:              "test-run",
		StartedAt:          time.Now().UTC().Add(-time.Second),
		FinishedAt:         time.Now().UTC(),
		DurationSeconds:    1.0,
		AccountsConfigured: 2,
		AccountsSucceeded:  1,
		AccountsFailed:     1,
		Positions:          2,
		Orders:             1,
		CurrentPnL:         150,
		PotentialLoss:      -500,
		PotentialProfit:    1000,
		TotalVolume:        0.3,
	}

	return runner.Result{Combined: combined, Accounts: accounts}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	doc := NewDocument(sampleResult(), true)

	path, err := WriteJSON(dir, doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "profit_loss_summary_"))
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed Document
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "test-run", parsed.ProcessingInfo.RunID)
	assert.Equal(t, 1, parsed.ProcessingInfo.AccountsSucceeded)
	assert.InDelta(t, 150.0, parsed.CombinedTotals.CurrentPnL, 1e-9)
	require.Len(t, parsed.AccountSummaries, 2)
	require.Len(t, parsed.DetailedResults, 1)
	assert.Equal(t, int64(111), parsed.DetailedResults[0].Login)
	assert.Len(t, parsed.DetailedResults[0].PositionResults, 2)
}

func TestNewDocument_SeparatesDetailsFromSummaries(t *testing.T) {
	doc := NewDocument(sampleResult(), true)

	// Summaries carry only aggregates; the breakdown lives in detailed_results.
	require.Len(t, doc.AccountSummaries, 2)
	assert.Nil(t, doc.AccountSummaries[0].PositionResults)
	assert.Equal(t, 2, doc.AccountSummaries[0].Positions)
	require.Len(t, doc.DetailedResults, 1)
	assert.Len(t, doc.DetailedResults[0].OrderResults, 1)
}

func TestNewDocument_StripsDetails(t *testing.T) {
	doc := NewDocument(sampleResult(), false)

	require.Len(t, doc.AccountSummaries, 2)
	assert.Empty(t, doc.DetailedResults)
	assert.Nil(t, doc.AccountSummaries[0].PositionResults)
	assert.Equal(t, 2, doc.AccountSummaries[0].Positions)
}

func TestWriteJSON_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")

	_, err := WriteJSON(dir, NewDocument(sampleResult(), true))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	WriteConsole(&buf, sampleResult(), true)
	out := buf.String()

	assert.Contains(t, out, "PROFIT / LOSS REPORT")
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "FAILED (connection_exhausted)")
	assert.Contains(t, out, "COMBINED TOTALS")
	assert.Contains(t, out, "ADDITIONAL STATISTICS")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "BUY_LIMIT")
}

func TestWriteConsole_SummaryOnly(t *testing.T) {
	var buf bytes.Buffer
	WriteConsole(&buf, sampleResult(), false)
	out := buf.String()

	assert.Contains(t, out, "COMBINED TOTALS")
	assert.NotContains(t, out, "#1")
}

func testServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(cfg, logger)
}

func TestServer_NoResultYet(t *testing.T) {
	srv := testServer(t, ServerConfig{Port: 0})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Summary(t *testing.T) {
	srv := testServer(t, ServerConfig{Port: 0})
	srv.SetResult(sampleResult())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "test-run", doc.ProcessingInfo.RunID)
}

func TestServer_AccountLookup(t *testing.T) {
	srv := testServer(t, ServerConfig{Port: 0})
	srv.SetResult(sampleResult())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/111", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var acct models.AccountSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	assert.Equal(t, int64(111), acct.Login)

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AuthToken(t *testing.T) {
	srv := testServer(t, ServerConfig{Port: 0, AuthToken: "sekrit"})
	srv.SetResult(sampleResult())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("X-Auth-Token", "sekrit")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health is reachable without the token.
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_PlainTextReport(t *testing.T) {
	srv := testServer(t, ServerConfig{Port: 0})
	srv.SetResult(sampleResult())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROFIT / LOSS REPORT")
}
