package browser

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"strconv"

	"github.com/pkg/errors"
)

// Chromium stores date_added as microseconds since 1601-01-01 UTC.
const windowsToUnixEpochMs = 11644473600000

type (
	// ChromeSource reads a Chromium "Bookmarks" profile file. The file is
	// re-read on every call since the browser rewrites it while running.
	ChromeSource struct {
		path string
	}

	chromeFile struct {
		Roots struct {
			BookmarkBar *chromeNode `json:"bookmark_bar"`
			Other       *chromeNode `json:"other"`
			Synced      *chromeNode `json:"synced"`
		} `json:"roots"`
	}

	chromeNode struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Type      string        `json:"type"`
		URL       string        `json:"url"`
		DateAdded string        `json:"date_added"`
		Children  []*chromeNode `json:"children"`
	}
)

func NewChromeSource(path string) *ChromeSource {
	return &ChromeSource{path: path}
}

func (s *ChromeSource) Tree(ctx context.Context) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := ioutil.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "read bookmarks file")
	}
	return parseChrome(b)
}

func (s *ChromeSource) Children(ctx context.Context, folderID string) ([]*Node, error) {
	return childrenOf(ctx, s.Tree, folderID)
}

func parseChrome(b []byte) (*Node, error) {
	f := chromeFile{}
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "decode bookmarks file")
	}

	root := &Node{ID: "0"}
	for _, top := range []*chromeNode{f.Roots.BookmarkBar, f.Roots.Other, f.Roots.Synced} {
		if top == nil {
			continue
		}
		appendChild(root, top.toNode())
	}
	return root, nil
}

func (c *chromeNode) toNode() *Node {
	n := &Node{
		ID:        c.ID,
		Title:     c.Name,
		DateAdded: chromeTime(c.DateAdded),
	}
	if c.Type == "url" {
		n.URL = c.URL
	}
	for _, child := range c.Children {
		appendChild(n, child.toNode())
	}
	return n
}

func chromeTime(v string) int64 {
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil || us <= 0 {
		return 0
	}
	return us/1000 - windowsToUnixEpochMs
}
