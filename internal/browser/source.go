package browser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	FormatChrome   = "chrome"
	FormatNetscape = "netscape"
)

type (
	// Source gives read access to a browser's bookmark tree.
	Source interface {
		Tree(ctx context.Context) (*Node, error)
		// Children returns the direct children of a folder in native order.
		Children(ctx context.Context, folderID string) ([]*Node, error)
	}

	treeLoader func(ctx context.Context) (*Node, error)
)

// OpenSource picks the reader for path by format, or by file extension when
// format is empty: .html and .htm are Netscape exports, anything else a
// Chromium profile file.
func OpenSource(path, format string) (Source, error) {
	if path == "" {
		return nil, errors.New("bookmarks file is not set")
	}
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			format = FormatNetscape
		default:
			format = FormatChrome
		}
	}

	switch format {
	case FormatChrome:
		return NewChromeSource(path), nil
	case FormatNetscape:
		return NewNetscapeSource(path), nil
	default:
		return nil, errors.Errorf("unknown bookmarks format %q", format)
	}
}

func childrenOf(ctx context.Context, load treeLoader, folderID string) ([]*Node, error) {
	root, err := load(ctx)
	if err != nil {
		return nil, err
	}
	folder := Find(root, folderID)
	if folder == nil {
		return nil, errors.Wrapf(ErrFolderNotFound, "id %s", folderID)
	}
	if folder.Children == nil {
		return []*Node{}, nil
	}
	return folder.Children, nil
}
