package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdrs/internal/casefile"
	"tdrs/internal/extract"
	"tdrs/internal/extract/handler"
	"tdrs/pkg/testutil"
)

func TestExtractEndpoints(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records := casefile.NewInMemoryStore()
	q := &casefile.Quarter{Label: "2024Q1"}
	require.NoError(t, records.CreateQuarter(ctx, q))
	m := &casefile.Month{QuarterID: q.ID, Label: "202401"}
	require.NoError(t, records.CreateMonth(ctx, m))
	_, err := casefile.NewService(records).SaveFamily(ctx, m.ID, testutil.FamilyValues("1"), "alice")
	require.NoError(t, err)

	r := chi.NewRouter()
	handler.New(extract.NewService(records, extract.NewInMemoryStore(), extract.WithLogger(logger)), logger).Register(r)
	quarterPath := "/quarters/" + strconv.FormatInt(q.ID, 10) + "/extracts"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, quarterPath, strings.NewReader(`{"name":"q1.txt"}`)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created handler.FileResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "q1.txt", created.Name)
	assert.Equal(t, 1, created.RecordCount)
	assert.Equal(t, "system", created.CreatedBy)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, quarterPath, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var listed []handler.FileResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Len(t, listed, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/extracts/"+strconv.FormatInt(created.ID, 10), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename=q1.txt`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Header: Processing records for Quarter 2024Q1\nT1202401"))
	assert.True(t, strings.HasSuffix(w.Body.String(), "Trailer: Total Records Processed 1\n"))
}

func TestExtractEndpointErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	handler.New(extract.NewService(casefile.NewInMemoryStore(), extract.NewInMemoryStore()), logger).Register(r)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad quarter id", http.MethodPost, "/quarters/abc/extracts", `{}`, http.StatusBadRequest},
		{"unknown quarter", http.MethodPost, "/quarters/42/extracts", `{}`, http.StatusNotFound},
		{"unknown quarter list", http.MethodGet, "/quarters/42/extracts", "", http.StatusNotFound},
		{"unknown file", http.MethodGet, "/extracts/7", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
