package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdrs/internal/casefile"
	"tdrs/internal/platform/middleware"
	"tdrs/internal/validation"
	"tdrs/internal/validation/handler"
	"tdrs/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *casefile.Service, casefile.Month) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	records := casefile.NewInMemoryStore()
	q := &casefile.Quarter{Label: "2024Q1"}
	require.NoError(t, records.CreateQuarter(ctx, q))
	month := casefile.Month{QuarterID: q.ID, Label: "202401"}
	require.NoError(t, records.CreateMonth(ctx, &month))

	catalog, err := validation.EmbeddedCatalog()
	require.NoError(t, err)
	svc := validation.NewService(records, validation.NewInMemoryLedger(), catalog, validation.WithLogger(logger))

	r := chi.NewRouter()
	r.Use(middleware.RemoteUser)
	handler.New(svc, logger).Register(r)
	return r, casefile.NewService(records, casefile.WithLogger(logger)), month
}

func TestHandleRun(t *testing.T) {
	router, cases, month := newRouter(t)
	_, err := cases.SaveFamily(context.Background(), month.ID, testutil.FamilyValues("1", "disposition", "9"), "alice")
	require.NoError(t, err)

	req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/validation-runs", map[string]string{"report_month": "202401"}), "carol")
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := testutil.UnmarshalResponse[handler.RunResponse](t, rr)
	assert.Equal(t, 1, body.Version)
	require.Len(t, body.Findings, 1)
	assert.Equal(t, "T1-008", body.Findings[0].EditCode)
	assert.Equal(t, "carol", body.Findings[0].CreatedBy)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/validation-runs/202401/versions/1/findings?sort=item_number", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, testutil.UnmarshalResponse[[]handler.FindingResponse](t, rr), 1)
}

func TestHandleRunErrors(t *testing.T) {
	router, _, _ := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/validation-runs", `{"report_month":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/validation-runs", `{"month":"202401"}`, http.StatusBadRequest, "bad_request"},
		{"bad month format", http.MethodPost, "/validation-runs", `{"report_month":"2024-01"}`, http.StatusBadRequest, "validation_error"},
		{"unknown month", http.MethodPost, "/validation-runs", `{"report_month":"203001"}`, http.StatusNotFound, "not_found"},
		{"bad version", http.MethodGet, "/validation-runs/202401/versions/x/findings", nil, http.StatusBadRequest, "bad_request"},
		{"missing version", http.MethodGet, "/validation-runs/202401/versions/3/findings", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, tt.method, tt.path, tt.body))
			testutil.AssertStatusAndError(t, rr, tt.status, tt.code)
		})
	}
}

func TestHandleStats(t *testing.T) {
	router, _, _ := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/validation-runs/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
