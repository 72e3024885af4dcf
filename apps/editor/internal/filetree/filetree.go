// Package filetree turns a flat list of repository paths into the nested
// structure the file browser renders.
package filetree

import (
	"path"
	"sort"
	"strings"
)

// MarkdownExts are the extensions shown by default.
var MarkdownExts = []string{".md", ".markdown", ".mdx"}

// Node is a directory or a file.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Dir      bool    `json:"dir"`
	Children []*Node `json:"children,omitempty"`
}

// Build nests paths under root (empty for the repository root), keeping only
// files whose extension is in exts. Directories sort before files, then by
// name. A nil exts keeps every file.
func Build(paths []string, root string, exts []string) []*Node {
	root = strings.Trim(root, "/")
	top := &Node{Dir: true}
	dirs := map[string]*Node{"": top}

	for _, p := range paths {
		p = strings.Trim(p, "/")
		if p == "" || !keep(p, exts) {
			continue
		}
		rel := p
		if root != "" {
			if !strings.HasPrefix(p, root+"/") {
				continue
			}
			rel = strings.TrimPrefix(p, root+"/")
		}

		parts := strings.Split(rel, "/")
		parent := top
		for i, name := range parts[:len(parts)-1] {
			key := strings.Join(parts[:i+1], "/")
			d, ok := dirs[key]
			if !ok {
				d = &Node{Name: name, Path: join(root, key), Dir: true}
				dirs[key] = d
				parent.Children = append(parent.Children, d)
			}
			parent = d
		}
		parent.Children = append(parent.Children, &Node{Name: parts[len(parts)-1], Path: p})
	}

	sortNodes(top.Children)
	return top.Children
}

func keep(p string, exts []string) bool {
	if exts == nil {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func join(root, rel string) string {
	if root == "" {
		return rel
	}
	return root + "/" + rel
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Dir != nodes[j].Dir {
			return nodes[i].Dir
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		if n.Dir {
			sortNodes(n.Children)
		}
	}
}
