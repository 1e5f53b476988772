package models

// TreeNode is a directory or file node of the project tree.
// File nodes carry a back-reference to their FileEntry.
type TreeNode struct {
	Name     string
	Path     string
	IsDir    bool
	Entry    *FileEntry
	Children []*TreeNode
}
