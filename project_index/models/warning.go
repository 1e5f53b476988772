package models

import "fmt"

type WarningKind string

const (
	WarnFileTooLarge WarningKind = "file_too_large"
	WarnTruncated    WarningKind = "truncated"
	WarnUnreadable   WarningKind = "unreadable"
	WarnLargeFile    WarningKind = "large_file"
)

// Warning is a non-fatal condition reported during a scan or a read.
type Warning struct {
	Kind    WarningKind
	Path    string
	Size    int64
	Message string
}

func (w Warning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", w.Kind, w.Message, w.Path)
}
