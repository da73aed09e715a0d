package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roomcast/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	tokenService := services.NewTokenService("devkey", "secret", "ws://localhost:7880", time.Hour)
	handler := NewTokenHandler(tokenService, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.SetupRoutes(router)
	return router
}

func postToken(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/token", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIssueToken_Success(t *testing.T) {
	router := newTestRouter()

	w := postToken(t, router, TokenRequest{RoomID: "demo", Name: "Alice"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ws://localhost:7880", resp.URL)
}

func TestIssueToken_MissingFields(t *testing.T) {
	router := newTestRouter()

	w := postToken(t, router, map[string]string{"name": "Alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postToken(t, router, map[string]string{"roomId": "demo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueToken_InvalidRoomID(t *testing.T) {
	router := newTestRouter()

	w := postToken(t, router, TokenRequest{RoomID: "bad room!", Name: "Alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "roomId")
}

func TestIssueToken_InvalidIdentity(t *testing.T) {
	router := newTestRouter()

	w := postToken(t, router, TokenRequest{RoomID: "demo", Name: "Alice", Identity: "no spaces allowed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueToken_TokenServiceFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	tokenService := services.NewTokenService("", "", "ws://localhost:7880", time.Hour)
	handler := NewTokenHandler(tokenService, func(c *gin.Context) {})
	handler.SetupRoutes(router)

	w := postToken(t, router, TokenRequest{RoomID: "demo", Name: "Alice"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
