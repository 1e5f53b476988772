package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
)

// InputReader reads lines from one source on a single goroutine, so a
// prompt abandoned by Ctrl+C does not lose the next line typed.
type InputReader struct {
	lines chan string
	err   error
	done  chan struct{}
}

func NewInputReader(r io.Reader) *InputReader {
	ir := &InputReader{lines: make(chan string), done: make(chan struct{})}
	go func() {
		defer close(ir.done)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			ir.lines <- scanner.Text()
		}
		ir.err = scanner.Err()
	}()
	return ir
}

// ReadLine waits for the next trimmed line. It returns io.EOF when the
// input ends and ctx.Err() when ctx is done first.
func (ir *InputReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-ir.lines:
		return strings.TrimSpace(line), nil
	case <-ir.done:
		if ir.err != nil {
			return "", fmt.Errorf("🚫 Error reading input: %w", ir.err)
		}
		return "", io.EOF
	}
}

// InputPromptWithContext prompts the user for a request in a charming way.
func InputPromptWithContext(ctx context.Context, reader *InputReader) (string, error) {
	fmt.Print(lipgloss.BlueSky.Render("> "))
	input, err := reader.ReadLine(ctx)
	if err != nil && ctx.Err() != nil {
		fmt.Println()
	}
	return input, err
}

// ConfirmPrompt asks a yes/no question; anything but y or yes is a no.
func ConfirmPrompt(ctx context.Context, reader *InputReader, question string) (bool, error) {
	fmt.Print(lipgloss.Yellow.Render(question + " (y/N): "))
	answer, err := reader.ReadLine(ctx)
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
