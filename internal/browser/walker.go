package browser

// ListFolders walks the tree depth-first in pre-order and returns every node
// that has children, with its depth below root. The root itself is never
// listed.
func ListFolders(root *Node) []Folder {
	folders := make([]Folder, 0)
	if root == nil {
		return folders
	}

	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if len(n.Children) == 0 {
			return
		}
		if depth > 0 {
			folders = append(folders, Folder{ID: n.ID, Title: n.Title, Depth: depth})
		}
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)

	return folders
}
