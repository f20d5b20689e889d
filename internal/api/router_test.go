package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/audit"
	"github.com/dmarinho/gestor-demandas/internal/backup"
	"github.com/dmarinho/gestor-demandas/internal/db"
	"github.com/dmarinho/gestor-demandas/internal/demandas"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, db.NewMigrator(database.DB).Up())
	repo := db.NewRepository(database.DB)
	t.Cleanup(func() {
		repo.Close()
		database.Close()
	})

	logger := zap.NewNop()
	recorder := audit.NewRecorder(repo, logger)
	snapshots, err := backup.NewService(repo, backup.Options{Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	service := demandas.NewService(repo, recorder, snapshots, nil, nil, logger)

	router := NewRouter(Deps{
		Service:  service,
		Backups:  snapshots,
		Database: database,
		Logger:   logger,
		Version:  "test",
	})
	t.Cleanup(service.Drain)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"nomeDemanda":  "Fix leak",
		"categoria":    "Manutenção",
		"prioridade":   "Importante",
		"complexidade": "Fácil",
		"descricao":    "Pipe is leaking badly",
		"local":        "Bloco A",
		"dataLimite":   "2999-01-01",
	}
}

func TestCreateDemandaEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/demandas", validPayload())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])

	demanda := body["demanda"].(map[string]interface{})
	assert.Equal(t, "pendente", demanda["status"])
	assert.True(t, strings.HasPrefix(demanda["tag"].(string), "DEM-"))
	assert.NotZero(t, demanda["id"])
}

func TestCreateDemandaShortDescription(t *testing.T) {
	router := setupRouter(t)

	payload := validPayload()
	payload["descricao"] = "short"
	w := doJSON(router, http.MethodPost, "/api/demandas", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])

	errs := body["errors"].([]interface{})
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if strings.Contains(e.(string), "10 caracteres") {
			found = true
		}
	}
	assert.True(t, found, "expected a minimum-description-length message, got %v", errs)
}

func TestListDemandasPaginationEnvelope(t *testing.T) {
	router := setupRouter(t)

	for i := 0; i < 25; i++ {
		payload := validPayload()
		payload["nomeDemanda"] = fmt.Sprintf("Demanda %02d", i+1)
		w := doJSON(router, http.MethodPost, "/api/demandas", payload)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/api/demandas?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"].([]interface{}), 10)

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(10), pagination["limit"])
	assert.Equal(t, float64(25), pagination["total"])
	assert.Equal(t, float64(3), pagination["pages"])
}

func TestListDemandasEmptyEnvelope(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/demandas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestGetDemandaNotFound(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/demandas/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
}

func TestUpdateDemandaEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/demandas", validPayload())
	require.Equal(t, http.StatusOK, w.Code)
	created := decode(t, w)["demanda"].(map[string]interface{})
	id := int64(created["id"].(float64))

	w = doJSON(router, http.MethodPut, fmt.Sprintf("/api/demandas/%d", id),
		map[string]interface{}{"status": "em_revisao"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode(t, w)["demanda"].(map[string]interface{})
	assert.Equal(t, "em_revisao", updated["status"])
	assert.Equal(t, created["tag"], updated["tag"])
}

func TestUpdateDemandaNotFound(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPut, "/api/demandas/999",
		map[string]interface{}{"local": "Bloco B"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDemandaEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/demandas", validPayload())
	require.Equal(t, http.StatusOK, w.Code)
	id := int64(decode(t, w)["demanda"].(map[string]interface{})["id"].(float64))

	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/api/demandas/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/api/demandas/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	router := setupRouter(t)

	payload := validPayload()
	payload["nomeDemanda"] = "Vazamento na copa"
	w := doJSON(router, http.MethodPost, "/api/demandas", payload)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/demandas/search?q=vazamento", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"].([]interface{}), 1)

	// Under the minimum query length the result is empty, not an error.
	w = doJSON(router, http.MethodGet, "/api/demandas/search?q=a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"].([]interface{}))
}

func TestEstatisticasEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/demandas", validPayload())
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/demandas/estatisticas?periodo=7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode(t, w)["estatisticas"].(map[string]interface{})
	assert.Equal(t, float64(7), stats["periodoDias"])
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(1), stats["pendentes"])
}

func TestBackupEndpoints(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/demandas", validPayload())
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/backup", map[string]interface{}{"tipo": "manual"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	filename := body["filename"].(string)
	assert.True(t, strings.HasPrefix(filename, "backup_manual_"))

	w = doJSON(router, http.MethodGet, "/api/backups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	backups := decode(t, w)["backups"].([]interface{})
	require.NotEmpty(t, backups)
	backupID := backups[0].(map[string]interface{})["id"].(float64)

	w = doJSON(router, http.MethodPost, "/api/restore",
		map[string]interface{}{"backupId": backupID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestRestoreMissingID(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/restore", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestoreUnknownBackup(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/restore",
		map[string]interface{}{"backupId": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["integrity"])
	assert.Equal(t, "test", body["version"])
	assert.Contains(t, body, "uptime")
	assert.Contains(t, body, "memory")
	assert.Contains(t, body, "demandas")
}

func TestUnmatchedRoute(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/nada/por/aqui", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}
