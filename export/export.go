package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/chat_history/models"
)

const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "txt"

	noProject  = "No project"
	timeLayout = "15:04:05"
)

// Session is the conversation being exported.
type Session struct {
	Project   string
	SessionID string
	Turns     []models.ConversationTurn
}

// Exporter renders a session in one format.
type Exporter interface {
	Export(session Session, now time.Time) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// NewExporter resolves a format name, case-insensitively. "md" is an
// alias for markdown.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown, "md":
		return markdownExporter{}, nil
	case FormatJSON:
		return jsonExporter{}, nil
	case FormatText:
		return textExporter{}, nil
	}
	return nil, fmt.Errorf("invalid format %q, use: markdown, json or txt: %w", format, apperr.ErrInvalidArgument)
}

// Export renders session in the named format.
func Export(format string, session Session, now time.Time) ([]byte, error) {
	exporter, err := NewExporter(format)
	if err != nil {
		return nil, err
	}
	return exporter.Export(session, now)
}

// FileName returns the default download name, e.g. conversation-1700000000000.md.
func FileName(format string, now time.Time) (string, error) {
	exporter, err := NewExporter(format)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("conversation-%d%s", now.UnixMilli(), exporter.FileExtension()), nil
}

func projectName(s Session) string {
	if s.Project == "" {
		return noProject
	}
	return s.Project
}

type markdownExporter struct{}

func (markdownExporter) Export(session Session, now time.Time) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("# 💎 Code Companion - Conversation\n\n")
	sb.WriteString(fmt.Sprintf("**Exported:** %s\n", now.Format(time.DateTime)))
	sb.WriteString(fmt.Sprintf("**Project:** %s\n\n", projectName(session)))
	sb.WriteString("---\n\n")
	for _, t := range session.Turns {
		sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", t.Author(), t.Time.Format(timeLayout)))
		sb.WriteString(t.Content + "\n\n")
	}
	return []byte(sb.String()), nil
}

func (markdownExporter) FileExtension() string { return ".md" }
func (markdownExporter) MimeType() string      { return "text/markdown" }

type textExporter struct{}

func (textExporter) Export(session Session, now time.Time) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("Code Companion - Conversation Export\n")
	sb.WriteString(fmt.Sprintf("Exported: %s\n", now.Format(time.DateTime)))
	sb.WriteString(fmt.Sprintf("Project: %s\n", projectName(session)))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, t := range session.Turns {
		sb.WriteString(fmt.Sprintf("[%s] %s:\n%s\n\n", t.Time.Format(timeLayout), t.Author(), t.Content))
	}
	return []byte(sb.String()), nil
}

func (textExporter) FileExtension() string { return ".txt" }
func (textExporter) MimeType() string      { return "text/plain" }

type jsonMessage struct {
	Role    string `json:"role"`
	Author  string `json:"author"`
	Time    string `json:"time"`
	Content string `json:"content"`
}

type jsonDocument struct {
	Exported  string        `json:"exported"`
	Project   string        `json:"project"`
	SessionID string        `json:"session_id,omitempty"`
	Messages  []jsonMessage `json:"messages"`
}

type jsonExporter struct{}

func (jsonExporter) Export(session Session, now time.Time) ([]byte, error) {
	doc := jsonDocument{
		Exported:  now.UTC().Format(time.RFC3339),
		Project:   projectName(session),
		SessionID: session.SessionID,
		Messages:  make([]jsonMessage, 0, len(session.Turns)),
	}
	for _, t := range session.Turns {
		doc.Messages = append(doc.Messages, jsonMessage{
			Role:    string(t.Role),
			Author:  t.Author(),
			Time:    t.Time.Format(time.RFC3339),
			Content: t.Content,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

func (jsonExporter) FileExtension() string { return ".json" }
func (jsonExporter) MimeType() string      { return "application/json" }
