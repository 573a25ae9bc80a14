package transport

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/service"
)

func newTestServer(t *testing.T, tokenHash string) *HTTPServer {
	gdb := dbtest.Open(t)
	logger := zaptest.NewLogger(t).Sugar()
	cfg := &config.Config{APITokenHash: tokenHash, Database: dbtest.Options()}
	return newHTTPServer(cfg, service.NewMerger(gdb, cfg, logger), service.NewGeneral(gdb, logger), logger)
}

func do(t *testing.T, s *HTTPServer, method, target, body string, headers map[string]string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestPing(t *testing.T) {
	s := newTestServer(t, "")

	code, body := do(t, s, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", string(body))

	code, body = do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status": "healthy"}`, string(body))
}

func TestBookmarkMerge(t *testing.T) {
	s := newTestServer(t, "")
	batch := `[
		{"url": "https://go.dev", "title": "Go", "tags": ["Lang", "lang"], "sourceFolder": "Reading"},
		{"url": "", "title": "no url"},
		{"url": "https://pkg.go.dev", "title": "Packages", "parentId": "5", "index": 2}
	]`

	t.Run("partial success", func(t *testing.T) {
		code, body := do(t, s, http.MethodPost, "/api/bookmarks", batch, map[string]string{batchHeader: "b-1"})
		require.Equal(t, http.StatusOK, code)

		report := models.MergeReport{}
		require.NoError(t, json.Unmarshal(body, &report))
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
		require.Len(t, report.Results, 3)
		assert.Equal(t, models.StatusCreated, report.Results[0].Status)
		assert.Equal(t, models.StatusFailed, report.Results[1].Status)
		assert.Contains(t, report.Results[1].Error, "invalid bookmark record")
		assert.Equal(t, models.StatusCreated, report.Results[2].Status)
	})

	t.Run("resent batch updates", func(t *testing.T) {
		code, body := do(t, s, http.MethodPost, "/api/bookmarks", batch, nil)
		require.Equal(t, http.StatusOK, code)

		report := models.MergeReport{}
		require.NoError(t, json.Unmarshal(body, &report))
		assert.Equal(t, models.StatusUpdated, report.Results[0].Status)
		assert.Equal(t, models.StatusUpdated, report.Results[2].Status)
	})

	t.Run("listing", func(t *testing.T) {
		code, body := do(t, s, http.MethodGet, "/api/bookmarks?tag=LANG", "", nil)
		require.Equal(t, http.StatusOK, code)

		got := make([]models.BookmarkResp, 0)
		require.NoError(t, json.Unmarshal(body, &got))
		require.Len(t, got, 1)
		assert.Equal(t, "https://go.dev", got[0].URL)
		assert.Equal(t, []string{"Lang"}, got[0].Tags)

		code, body = do(t, s, http.MethodGet, "/api/tags", "", nil)
		require.Equal(t, http.StatusOK, code)
		tagList := make([]models.TagResp, 0)
		require.NoError(t, json.Unmarshal(body, &tagList))
		require.Len(t, tagList, 1)
		assert.Equal(t, "lang", tagList[0].NormalizedName)
	})

	t.Run("bad limit", func(t *testing.T) {
		code, _ := do(t, s, http.MethodGet, "/api/bookmarks?limit=many", "", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("body is not an array", func(t *testing.T) {
		code, body := do(t, s, http.MethodPost, "/api/bookmarks", `{"url": "https://go.dev"}`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, string(body), "JSON array")
	})

	t.Run("empty batch", func(t *testing.T) {
		code, body := do(t, s, http.MethodPost, "/api/bookmarks", `[]`, nil)
		require.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"results": [], "succeeded": 0, "failed": 0}`, string(body))
	})
}

func TestAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	s := newTestServer(t, string(hash))

	code, _ := do(t, s, http.MethodGet, "/api/tags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, s, http.MethodGet, "/api/tags", "", map[string]string{tokenHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, s, http.MethodGet, "/api/tags", "", map[string]string{tokenHeader: "secret"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, s, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestHashToken(t *testing.T) {
	hash, err := HashToken("secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
}
