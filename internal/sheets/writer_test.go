package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/model"
)

type fakeSheetsAPI struct {
	existingTabs []string
	failUpdates  int
	failStatus   int
	updates      map[string][][]any
	calls        []string
	mu           sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		resp := sheets.Spreadsheet{SpreadsheetId: "sheet-123"}
		for i, title := range f.existingTabs {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{SheetId: int64(i), Title: title},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			SpreadsheetId: "created-1",
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{SheetId: 0, Title: LedgerTab}},
				{Properties: &sheets.SheetProperties{SheetId: 1, Title: SummaryTab}},
			},
		})
	case strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := sheets.BatchUpdateSpreadsheetResponse{}
		for i, sub := range req.Requests {
			reply := &sheets.Response{}
			if sub.AddSheet != nil {
				reply.AddSheet = &sheets.AddSheetResponse{Properties: &sheets.SheetProperties{
					SheetId: int64(100 + i),
					Title:   sub.AddSheet.Properties.Title,
				}}
			}
			resp.Replies = append(resp.Replies, reply)
		}
		_ = json.NewEncoder(w).Encode(resp)
	case strings.HasSuffix(path, ":clear"):
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		if f.failUpdates > 0 {
			f.failUpdates--
			status := f.failStatus
			if status == 0 {
				status = http.StatusServiceUnavailable
			}
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"rejected"}}`, status)
			return
		}
		var body sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		rangeName := path[strings.LastIndex(path, "/")+1:]
		f.updates[rangeName] = append(f.updates[rangeName], body.Values...)
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSheetsAPI) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return newWriterWithService(svc, cfg, nil)
}

func testExpenses() []model.Expense {
	return []model.Expense{
		{Date: "2024-01-05", Item: "Salary", Amount: 3000, Type: model.TypeIncome, Category: "Salary"},
		{Date: "2024-01-10", Item: "Rent", Amount: 1200, Type: model.TypeExpense, Category: "Housing"},
		{Date: "2024-02-03", Item: "Coffee", Amount: 4.5, Type: model.TypeExpense},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ServiceAccountPath = "unused.json"
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestWriter_ExportExistingSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{existingTabs: []string{LedgerTab, SummaryTab}, updates: map[string][][]any{}}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-123"
	w := newTestWriter(t, api, cfg)

	id, err := w.Export(context.Background(), testExpenses())
	require.NoError(t, err)
	assert.Equal(t, "sheet-123", id)

	ledgerRows := api.updates[LedgerTab+"!A1"]
	require.Len(t, ledgerRows, 4)
	assert.Equal(t, []any{"Date", "Item", "Type", "Category", "Amount"}, ledgerRows[0])
	assert.Equal(t, "2024-02-03", ledgerRows[1][0])
	assert.Equal(t, "Uncategorized", ledgerRows[1][3])

	summaryRows := api.updates[SummaryTab+"!A1"]
	require.NotEmpty(t, summaryRows)
	assert.Equal(t, "Total Income", summaryRows[1][0])

	assert.Equal(t, 2, api.count("POST /v4/spreadsheets/sheet-123/values/"))
	// Formatting only; no tabs were missing.
	assert.Equal(t, 1, api.count("POST /v4/spreadsheets/sheet-123:batchUpdate"))
}

func TestWriter_ExportAddsMissingTabs(t *testing.T) {
	api := &fakeSheetsAPI{existingTabs: []string{"Sheet1"}, updates: map[string][][]any{}}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-123"
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	_, err := w.Export(context.Background(), testExpenses())
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("POST /v4/spreadsheets/sheet-123:batchUpdate"))
	assert.Contains(t, api.updates, LedgerTab+"!A1")
}

func TestWriter_ExportCreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{updates: map[string][][]any{}}
	w := newTestWriter(t, api, testConfig())

	id, err := w.Export(context.Background(), testExpenses())
	require.NoError(t, err)
	assert.Equal(t, "created-1", id)
	assert.Contains(t, api.calls, "POST /v4/spreadsheets")
	assert.Equal(t, 1, api.count("POST /v4/spreadsheets/created-1:batchUpdate"))
	assert.Contains(t, api.updates, SummaryTab+"!A1")
}

func TestWriter_ExportBatchesAndRetries(t *testing.T) {
	api := &fakeSheetsAPI{existingTabs: []string{LedgerTab, SummaryTab}, updates: map[string][][]any{}, failUpdates: 1}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-123"
	cfg.BatchSize = 2
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	_, err := w.Export(context.Background(), testExpenses())
	require.NoError(t, err)

	assert.Len(t, api.updates[LedgerTab+"!A1"], 2)
	assert.Len(t, api.updates[LedgerTab+"!A3"], 2)
}

func TestWriter_ExportGivesUp(t *testing.T) {
	api := &fakeSheetsAPI{existingTabs: []string{LedgerTab, SummaryTab}, updates: map[string][][]any{}, failUpdates: 100}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-123"
	cfg.RetryAttempts = 2
	w := newTestWriter(t, api, cfg)

	_, err := w.Export(context.Background(), testExpenses())
	assert.ErrorIs(t, err, common.ErrMaxRetries)
}

func TestWriter_ExportDoesNotRetryRejectedWrites(t *testing.T) {
	api := &fakeSheetsAPI{
		existingTabs: []string{LedgerTab, SummaryTab},
		updates:      map[string][][]any{},
		failUpdates:  100,
		failStatus:   http.StatusBadRequest,
	}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-123"
	cfg.RetryAttempts = 3
	w := newTestWriter(t, api, cfg)

	_, err := w.Export(context.Background(), testExpenses())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 1, api.count("PUT "))
}

func TestClassifyAPIError(t *testing.T) {
	plain := errors.New("connection reset")
	tests := []struct {
		err           error
		name          string
		wantRateLimit bool
		wantPermanent bool
	}{
		{name: "quota", err: &googleapi.Error{Code: http.StatusTooManyRequests}, wantRateLimit: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusBadGateway}},
		{name: "forbidden", err: fmt.Errorf("write: %w", &googleapi.Error{Code: http.StatusForbidden}), wantPermanent: true},
		{name: "network", err: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.wantRateLimit, errors.Is(got, common.ErrRateLimit))
			var re *common.RetryableError
			assert.Equal(t, tt.wantPermanent, errors.As(got, &re) && !re.Retryable)
		})
	}
	assert.NoError(t, classifyAPIError(nil))
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(testExpenses())
	assert.InDelta(t, 3000, report.Totals.Income, 0.001)
	require.Len(t, report.Monthly, 2)

	summary := report.summaryValues()
	assert.Contains(t, summary, []any{"Month", "Income", "Expenses", "Net", "Running Balance"})
	assert.Contains(t, summary, []any{"January 2024", 3000.0, 1200.0, 1800.0, 1800.0})
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, want))
	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
	assert.Equal(t, "a", got.AccessToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
