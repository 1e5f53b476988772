package utils

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const terminalFormatter = "terminal256"

// MarkdownRenderer prints a streamed markdown answer line by line. It is
// fed growing snapshots of the same text and prints only complete lines
// it has not printed yet.
type MarkdownRenderer struct {
	out         io.Writer
	theme       string
	printed     int
	inCodeBlock bool
	language    string
}

func NewMarkdownRenderer(out io.Writer, theme string) *MarkdownRenderer {
	return &MarkdownRenderer{out: out, theme: theme}
}

// Update renders the new complete lines of snapshot.
func (r *MarkdownRenderer) Update(snapshot string) error {
	if len(snapshot) <= r.printed {
		return nil
	}
	pending := snapshot[r.printed:]
	end := strings.LastIndexByte(pending, '\n')
	if end < 0 {
		return nil
	}
	r.printed += end + 1
	for _, line := range strings.SplitAfter(pending[:end+1], "\n") {
		if line == "" {
			continue
		}
		if err := r.renderLine(line); err != nil {
			return err
		}
	}
	return nil
}

// Finish renders whatever is left of the final text and resets the
// renderer for the next answer.
func (r *MarkdownRenderer) Finish(final string) error {
	defer r.Reset()
	if err := r.Update(final); err != nil {
		return err
	}
	if rest := final[min(r.printed, len(final)):]; rest != "" {
		return r.renderLine(rest + "\n")
	}
	return nil
}

func (r *MarkdownRenderer) Reset() {
	r.printed = 0
	r.inCodeBlock = false
	r.language = ""
}

func (r *MarkdownRenderer) renderLine(line string) error {
	if fence := strings.TrimSpace(line); strings.HasPrefix(fence, "```") {
		r.inCodeBlock = !r.inCodeBlock
		r.language = ""
		if r.inCodeBlock {
			r.language = DetectLanguageFromCodeBlock(fence)
		}
		return quick.Highlight(r.out, line, "markdown", terminalFormatter, r.theme)
	}

	if r.inCodeBlock {
		switch {
		case strings.HasPrefix(line, "+"):
			_, err := io.WriteString(r.out, "\x1b[92m"+strings.TrimSuffix(line, "\n")+"\x1b[0m\n")
			return err
		case strings.HasPrefix(line, "-"):
			_, err := io.WriteString(r.out, "\x1b[91m"+strings.TrimSuffix(line, "\n")+"\x1b[0m\n")
			return err
		}
		if r.language != "" {
			return quick.Highlight(r.out, line, r.language, terminalFormatter, r.theme)
		}
	}
	return quick.Highlight(r.out, line, "markdown", terminalFormatter, r.theme)
}

// DetectLanguageFromCodeBlock returns the language named on an opening
// fence, e.g. "go" for "```go".
func DetectLanguageFromCodeBlock(fence string) string {
	info := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(fence), "`"))
	if fields := strings.Fields(info); len(fields) > 0 {
		return strings.ToLower(fields[0])
	}
	return ""
}

// HighlightCode writes source highlighted for language. Unknown languages
// fall back to plain text.
func HighlightCode(out io.Writer, source string, language string, theme string) error {
	if language == "" || language == NoLanguage {
		language = "plaintext"
	}
	return quick.Highlight(out, source, language, terminalFormatter, theme)
}
