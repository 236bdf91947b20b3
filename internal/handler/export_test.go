package handler_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/handler"
)

// ---- helpers ---------------------------------------------------------------

// newExportHTTPHandler wires a Server with only an export func.
func newExportHTTPHandler(export func(ctx context.Context) ([]domain.ExportRow, error)) http.Handler {
	return newHTTPHandler(nil, &mockRideServicer{export: export}, testOptions())
}

func exportRows(rows ...domain.ExportRow) func(context.Context) ([]domain.ExportRow, error) {
	return func(context.Context) ([]domain.ExportRow, error) {
		if rows == nil {
			rows = []domain.ExportRow{}
		}
		return rows, nil
	}
}

// exportRowFixture returns a fully-populated domain.ExportRow for testing.
func exportRowFixture() domain.ExportRow {
	return domain.ExportRow{
		PostID:       uuid.New().String(),
		ExternalID:   "t1",
		ServiceLabel: "Uber Pool",
		Title:        "Rode Uber Pool in Springfield",
		Status:       domain.PostStatusPublish,
		PublishedAt:  time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
		Polyline:     "ABC",
	}
}

// ---- GET /rides/export, JSON -----------------------------------------------

func TestGetExport_DefaultJSON_EmptyResult(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rides/export", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetExport_FormatJSON_ExplicitParam(t *testing.T) {
	row := exportRowFixture()

	req := httptest.NewRequest(http.MethodGet, "/rides/export?format=json", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows(row)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rows []handler.ExportRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, row.PostID, rows[0].PostID.String())
	assert.Equal(t, row.Title, rows[0].Title)
	require.NotNil(t, rows[0].Polyline)
	assert.Equal(t, "ABC", *rows[0].Polyline)
}

func TestGetExport_JSON_RideWithoutRoute_OmitsPolyline(t *testing.T) {
	row := exportRowFixture()
	row.Polyline = ""
	row.ServiceLabel = ""

	req := httptest.NewRequest(http.MethodGet, "/rides/export", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows(row)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "polyline")

	var rows []handler.ExportRow
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Polyline)
	assert.Nil(t, rows[0].Service)
}

// ---- GET /rides/export, CSV ------------------------------------------------

func TestGetExport_CSV_FormatParam_ContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rides/export?format=csv", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rides.csv")
}

func TestGetExport_CSV_EmptyResult_HasHeaderRow(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rides/export?format=csv", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "post_id,"), "CSV should start with header row, got: %q", body)
}

func TestGetExport_CSV_OneRow_HasHeaderAndDataRow(t *testing.T) {
	row := exportRowFixture()
	row.Title = `Rode "Uber Pool", again`

	req := httptest.NewRequest(http.MethodGet, "/rides/export?format=csv", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows(row)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	// Header + 1 data row.
	require.Len(t, records, 2)
	assert.Equal(t, "post_id", records[0][0])
	assert.Equal(t, []string{
		row.PostID, "t1", "Uber Pool", `Rode "Uber Pool", again`, "publish", "2023-01-01T10:00:00Z", "ABC",
	}, records[1])
}

// ---- error handling --------------------------------------------------------

func TestGetExport_UnknownFormat_Returns400(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rides/export?format=xml", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(exportRows()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExport_ServiceError_Returns500(t *testing.T) {
	failing := func(context.Context) ([]domain.ExportRow, error) {
		return nil, fmt.Errorf("database unavailable")
	}

	req := httptest.NewRequest(http.MethodGet, "/rides/export", nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(failing).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database unavailable")
}
