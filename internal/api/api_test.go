package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skladsync/skladsync/internal/db"
	"github.com/skladsync/skladsync/internal/moysklad"
	"github.com/skladsync/skladsync/internal/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer wires the api over an in-memory database and a fake remote.
// remoteProducts is what POST /api/sync/products will pull; remoteStatus != 0
// makes every remote call fail with that status.
func newTestServer(t *testing.T, remoteProducts []moysklad.Record, remoteStatus int) (*Server, *gorm.DB) {
	t.Helper()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if remoteStatus != 0 {
			http.Error(w, "remote unavailable", remoteStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(moysklad.ListResponse{
			Meta: moysklad.Meta{Size: len(remoteProducts)},
			Rows: remoteProducts,
		})
	}))
	t.Cleanup(remote.Close)

	client, err := moysklad.New(zerolog.Nop(), moysklad.Config{BaseURL: remote.URL, Token: "t"})
	require.NoError(t, err)

	h, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, h.Migrate())

	engine := syncer.NewEngine(zerolog.Nop(), h.DB, client)
	return New(zerolog.Nop(), h.DB, engine), h.DB
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var parsed map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &parsed)
	return w, parsed
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, 0)
	w, body := doJSON(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "skladsync", body["service"])
}

func TestListProductsFilterAndSearch(t *testing.T) {
	s, gdb := newTestServer(t, nil, 0)
	require.NoError(t, gdb.Create(&db.Product{MoyskladID: "p1", Name: "Hammer", Article: "A1", IsActive: true}).Error)
	require.NoError(t, gdb.Create(&db.Product{MoyskladID: "p2", Name: "Screwdriver", Article: "A2", IsActive: true}).Error)
	require.NoError(t, gdb.Create(&db.Product{MoyskladID: "p3", Name: "Old hammer", Article: "A3", Archived: true}).Error)

	w, body := doJSON(t, s, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["count"])

	_, body = doJSON(t, s, http.MethodGet, "/api/products?search=hammer", "")
	assert.EqualValues(t, 2, body["count"])

	_, body = doJSON(t, s, http.MethodGet, "/api/products?archived=true", "")
	assert.EqualValues(t, 1, body["count"])

	_, body = doJSON(t, s, http.MethodGet, "/api/products?search=hammer&archived=false", "")
	assert.EqualValues(t, 1, body["count"])
}

func TestProductCRUD(t *testing.T) {
	s, _ := newTestServer(t, nil, 0)

	w, created := doJSON(t, s, http.MethodPost, "/api/products", `{"moysklad_id":"m1","name":"Manual"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := int(created["id"].(float64))
	require.NotZero(t, id)

	w, got := doJSON(t, s, http.MethodGet, "/api/products/"+itoa(id), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Manual", got["name"])

	w, _ = doJSON(t, s, http.MethodPut, "/api/products/"+itoa(id), `{"moysklad_id":"m1","name":"Renamed"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, s, http.MethodDelete, "/api/products/"+itoa(id), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doJSON(t, s, http.MethodGet, "/api/products/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerProductSync(t *testing.T) {
	s, gdb := newTestServer(t, []moysklad.Record{
		{"id": "p1", "name": "One", "salePrices": []any{map[string]any{"value": 150000.0}}},
		{"id": "p2", "name": "Two"},
	}, 0)

	w, body := doJSON(t, s, http.MethodPost, "/api/sync/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["created"])
	assert.EqualValues(t, 0, body["updated"])
	assert.EqualValues(t, 2, body["total"])

	var p db.Product
	require.NoError(t, gdb.Where("moysklad_id = ?", "p1").Take(&p).Error)
	assert.Equal(t, "1500.00", p.Price.StringFixed(2))

	// a second trigger only updates
	_, body = doJSON(t, s, http.MethodPost, "/api/sync/products", "")
	assert.EqualValues(t, 0, body["created"])
	assert.EqualValues(t, 2, body["updated"])
}

func TestTriggerSyncRemoteFailure(t *testing.T) {
	s, gdb := newTestServer(t, nil, http.StatusBadGateway)

	w, body := doJSON(t, s, http.MethodPost, "/api/sync/products", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	var run db.SyncRun
	require.NoError(t, gdb.Order("id DESC").Take(&run).Error)
	assert.Equal(t, db.SyncStatusError, run.Status)
}

func TestSyncLogsListing(t *testing.T) {
	s, _ := newTestServer(t, []moysklad.Record{{"id": "p1", "name": "One"}}, 0)

	_, _ = doJSON(t, s, http.MethodPost, "/api/sync/products", "")

	w, body := doJSON(t, s, http.MethodGet, "/api/sync-logs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])

	rows := body["rows"].([]any)
	first := rows[0].(map[string]any)
	assert.Equal(t, "products", first["sync_type"])
	assert.Equal(t, "success", first["status"])

	_, body = doJSON(t, s, http.MethodGet, "/api/sync-logs?sync_type=stock", "")
	assert.EqualValues(t, 0, body["count"])
}

func itoa(n int) string { return strconv.Itoa(n) }
