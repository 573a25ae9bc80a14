package browser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromeSource(t *testing.T) {
	s := NewChromeSource(filepath.Join("testdata", "Bookmarks"))
	ctx := context.Background()

	t.Run("folders", func(t *testing.T) {
		root, err := s.Tree(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0", root.ID)
		assert.Equal(t, []Folder{
			{ID: "1", Title: "Bookmarks bar", Depth: 1},
			{ID: "3", Title: "Reading", Depth: 2},
			{ID: "6", Title: "Drivers", Depth: 3},
			{ID: "2", Title: "Other bookmarks", Depth: 1},
		}, ListFolders(root))
	})

	t.Run("direct children", func(t *testing.T) {
		children, err := s.Children(ctx, "3")
		require.NoError(t, err)
		require.Len(t, children, 3)

		assert.Equal(t, "4", children[0].ID)
		assert.Equal(t, "3", children[0].ParentID)
		assert.Equal(t, 0, children[0].Index)
		assert.Equal(t, "https://go.dev/", children[0].URL)
		assert.Equal(t, "The Go Programming Language", children[0].Title)
		assert.EqualValues(t, 1619410800000, children[0].DateAdded)

		assert.False(t, children[1].IsBookmark())
		assert.Equal(t, "Drivers", children[1].Title)

		assert.Equal(t, 2, children[2].Index)
		assert.Equal(t, "", children[2].Title)
	})

	t.Run("empty folder", func(t *testing.T) {
		children, err := s.Children(ctx, "9")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("unknown folder", func(t *testing.T) {
		_, err := s.Children(ctx, "404")
		assert.True(t, errors.Is(err, ErrFolderNotFound))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewChromeSource(filepath.Join(t.TempDir(), "Bookmarks")).Tree(ctx)
		assert.Error(t, err)
	})
}

func TestNetscapeSource(t *testing.T) {
	s := NewNetscapeSource(filepath.Join("testdata", "bookmarks.html"))
	ctx := context.Background()

	t.Run("folders", func(t *testing.T) {
		root, err := s.Tree(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Folder{
			{ID: "0.0", Title: "Bookmarks bar", Depth: 1},
			{ID: "0.0.0", Title: "Reading", Depth: 2},
			{ID: "0.0.0.1", Title: "Drivers", Depth: 3},
		}, ListFolders(root))
	})

	t.Run("direct children", func(t *testing.T) {
		children, err := s.Children(ctx, "0.0.0")
		require.NoError(t, err)
		require.Len(t, children, 3)

		assert.Equal(t, "0.0.0.0", children[0].ID)
		assert.Equal(t, "0.0.0", children[0].ParentID)
		assert.Equal(t, "https://go.dev/", children[0].URL)
		assert.Equal(t, []string{"Go", "Lang"}, children[0].Tags)
		assert.EqualValues(t, 1620000020000, children[0].DateAdded)

		assert.Equal(t, "Drivers", children[1].Title)
		assert.Len(t, children[1].Children, 1)

		assert.Equal(t, "https://pkg.go.dev/", children[2].URL)
		assert.Equal(t, "", children[2].Title)
	})

	t.Run("top level bookmark", func(t *testing.T) {
		children, err := s.Children(ctx, "0")
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, "https://example.com/", children[1].URL)
	})
}

func TestOpenSource(t *testing.T) {
	s, err := OpenSource("/tmp/bookmarks.html", "")
	require.NoError(t, err)
	assert.IsType(t, &NetscapeSource{}, s)

	s, err = OpenSource("/home/u/.config/chromium/Default/Bookmarks", "")
	require.NoError(t, err)
	assert.IsType(t, &ChromeSource{}, s)

	s, err = OpenSource("/tmp/export.txt", FormatNetscape)
	require.NoError(t, err)
	assert.IsType(t, &NetscapeSource{}, s)

	_, err = OpenSource("/tmp/x", "safari")
	assert.Error(t, err)

	_, err = OpenSource("", "")
	assert.Error(t, err)
}
