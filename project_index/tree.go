package project_index

import (
	"path"
	"sort"
	"strings"

	"github.com/meysamhadeli/codecompanion/project_index/models"
)

// BuildTree turns the flat index into a directory tree. Children are
// ordered directories first, then by name.
func BuildTree(index *models.ProjectIndex) *models.TreeNode {
	if index == nil {
		return nil
	}

	root := &models.TreeNode{Name: index.RootName, IsDir: true}
	dirs := map[string]*models.TreeNode{"": root}

	for i := 0; i < index.Len(); i++ {
		entry := index.At(i)
		parts := strings.Split(entry.Path, "/")

		parent := root
		prefix := ""
		for _, part := range parts[:len(parts)-1] {
			prefix = path.Join(prefix, part)
			node, ok := dirs[prefix]
			if !ok {
				node = &models.TreeNode{Name: part, Path: prefix, IsDir: true}
				parent.Children = append(parent.Children, node)
				dirs[prefix] = node
			}
			parent = node
		}

		parent.Children = append(parent.Children, &models.TreeNode{
			Name:  parts[len(parts)-1],
			Path:  entry.Path,
			Entry: entry,
		})
	}

	sortTree(root)
	return root
}

func sortTree(node *models.TreeNode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
	for _, child := range node.Children {
		if child.IsDir {
			sortTree(child)
		}
	}
}

// RenderTree draws the tree as indented text, one node per line.
func RenderTree(root *models.TreeNode) string {
	if root == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(root.Name + "/\n")
	renderChildren(&sb, root, "")
	return sb.String()
}

func renderChildren(sb *strings.Builder, node *models.TreeNode, prefix string) {
	for i, child := range node.Children {
		last := i == len(node.Children)-1
		connector, indent := "├─ ", "│  "
		if last {
			connector, indent = "└─ ", "   "
		}
		sb.WriteString(prefix + connector + child.Name)
		if child.IsDir {
			sb.WriteString("/")
		}
		sb.WriteString("\n")
		if child.IsDir {
			renderChildren(sb, child, prefix+indent)
		}
	}
}
