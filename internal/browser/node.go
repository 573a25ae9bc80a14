package browser

import (
	"github.com/pkg/errors"
)

var ErrFolderNotFound = errors.New("folder not found")

type (
	// Node is one entry of a browser's bookmark tree. Entries with a URL are
	// bookmarks, the rest are folders.
	Node struct {
		ID        string
		ParentID  string
		Index     int
		Title     string
		URL       string
		DateAdded int64 // ms since the Unix epoch, 0 when unknown
		Tags      []string
		Children  []*Node
	}

	Folder struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Depth int    `json:"depth"`
	}
)

func (n *Node) IsBookmark() bool {
	return n.URL != ""
}

// Find returns the node with the given id below and including root.
func Find(root *Node, id string) *Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, child := range root.Children {
		if found := Find(child, id); found != nil {
			return found
		}
	}
	return nil
}

func appendChild(parent *Node, child *Node) *Node {
	child.ParentID = parent.ID
	child.Index = len(parent.Children)
	parent.Children = append(parent.Children, child)
	return child
}
