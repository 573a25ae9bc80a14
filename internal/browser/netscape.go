package browser

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// NetscapeSource reads a Netscape bookmark HTML export. Exports carry no
// ids, so nodes get positional ids ("0", "0.1", "0.1.3") which stay stable
// as long as the exported tree does not change.
type NetscapeSource struct {
	path string
}

func NewNetscapeSource(path string) *NetscapeSource {
	return &NetscapeSource{path: path}
}

func (s *NetscapeSource) Tree(ctx context.Context) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "open bookmarks file")
	}
	defer f.Close()

	return parseNetscape(f)
}

func (s *NetscapeSource) Children(ctx context.Context, folderID string) ([]*Node, error) {
	return childrenOf(ctx, s.Tree, folderID)
}

func parseNetscape(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse bookmarks html")
	}

	root := &Node{ID: "0"}
	stack := []*Node{root}
	// folder opened by the last <H3>, waiting for its <DL>
	var pending *Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		opened := false
		if n.Type == html.ElementNode {
			parent := stack[len(stack)-1]
			switch n.Data {
			case "h3":
				pending = appendNetscape(parent, &Node{
					Title:     textOf(n),
					DateAdded: netscapeTime(attr(n, "add_date")),
				})
			case "a":
				href := attr(n, "href")
				if href == "" {
					break
				}
				appendNetscape(parent, &Node{
					Title:     textOf(n),
					URL:       href,
					DateAdded: netscapeTime(attr(n, "add_date")),
					Tags:      splitTags(attr(n, "tags")),
				})
			case "dl":
				if pending != nil {
					stack = append(stack, pending)
					pending = nil
					opened = true
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if opened {
			stack = stack[:len(stack)-1]
		}
	}
	walk(doc)

	return root, nil
}

func appendNetscape(parent *Node, child *Node) *Node {
	child.ID = parent.ID + "." + strconv.Itoa(len(parent.Children))
	return appendChild(parent, child)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func netscapeTime(v string) int64 {
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil || sec <= 0 {
		return 0
	}
	return sec * 1000
}

func splitTags(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
