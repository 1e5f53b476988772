package models

import "time"

// HistoryRecord is one completed exchange in the durable chat log.
type HistoryRecord struct {
	ID               int64
	Timestamp        time.Time
	UserMessage      string
	AssistantMessage string
	Model            string
	FolderName       string
	FileCount        int
	SessionID        string
}
