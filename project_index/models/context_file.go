package models

// ContextFile is a file selected for inclusion in a prompt.
type ContextFile struct {
	Path      string
	Name      string
	Language  string
	Content   string
	Truncated bool
}
