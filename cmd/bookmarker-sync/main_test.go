package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/models"
)

var chromeBookmarks = filepath.Join("..", "..", "internal", "browser", "testdata", "Bookmarks")

type cli struct {
	t        *testing.T
	settings string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, settings: filepath.Join(t.TempDir(), "settings.json")}
}

func (c *cli) run(args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--settings", c.settings, "--bookmarks", chromeBookmarks}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func TestFoldersAndSelection(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, ""+
		"  Bookmarks bar [1]\n"+
		"    Reading [3]\n"+
		"      Drivers [6]\n"+
		"  Other bookmarks [2]\n",
		c.mustRun("folders"))

	assert.Equal(t, "selected Reading [3]\nselected Other bookmarks [2]\n", c.mustRun("select", "add", "3", "2"))
	assert.Equal(t, "already selected [3]\n", c.mustRun("select", "add", "3"))
	assert.Contains(t, c.mustRun("folders"), "*   Reading [3]")
	assert.Equal(t, "Reading [3]\nOther bookmarks [2]\n", c.mustRun("select", "list"))

	_, err := c.run("select", "add", "9")
	assert.Error(t, err)

	assert.Equal(t, "unselected [2]\n", c.mustRun("select", "remove", "2"))
	assert.Equal(t, "not selected [2]\n", c.mustRun("select", "remove", "2"))
	assert.Equal(t, "Reading [3]\n", c.mustRun("select", "list"))
}

func TestServerSet(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("server", "set", "bookmarks.example.com")
	assert.Error(t, err)

	c.mustRun("server", "set", "https://bookmarks.example.com")
	c.mustRun("token", "set", "secret")
	out := c.mustRun("status")
	assert.Contains(t, out, "server:    https://bookmarks.example.com")
	assert.Contains(t, out, "token:     set")
	assert.Contains(t, out, "last sync: never")
}

func TestSync(t *testing.T) {
	var sent []models.BookmarkRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := ioutil.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &sent))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"index": 0, "url": "https://go.dev/", "status": "created"},
			{"index": 1, "url": "https://pkg.go.dev/", "status": "created"}], "succeeded": 2, "failed": 0}`))
	}))
	defer srv.Close()

	c := newCLI(t)
	_, err := c.run("sync")
	assert.Error(t, err)

	c.mustRun("server", "set", srv.URL)
	c.mustRun("select", "add", "3")

	out := c.mustRun("sync")
	assert.Contains(t, out, "sent 2 bookmarks")
	assert.Contains(t, out, "server: 2 merged, 0 failed")

	require.Len(t, sent, 2)
	assert.Equal(t, "https://go.dev/", sent[0].URL)
	assert.Equal(t, "https://pkg.go.dev/", sent[1].Title)
	assert.Equal(t, "Reading", *sent[1].SourceFolder)

	assert.NotContains(t, c.mustRun("status"), "last sync: never")
}

func TestHashToken(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("hash-token", "secret")
	assert.Regexp(t, `^\$2a\$10\$`, out)
}
