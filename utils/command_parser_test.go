package utils

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  ChatCommand
	}{
		{"  explain main.go ", ChatCommand{Content: "explain main.go"}},
		{"/help", ChatCommand{IsCommand: true, Name: "help", Content: "/help"}},
		{"/Export  markdown ", ChatCommand{IsCommand: true, Name: "export", Args: "markdown", Content: "/Export  markdown"}},
		{"/preview src/app.js", ChatCommand{IsCommand: true, Name: "preview", Args: "src/app.js", Content: "/preview src/app.js"}},
		{"", ChatCommand{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.input))
		})
	}
}

func TestInputReader_ReadsLinesThenEOF(t *testing.T) {
	reader := NewInputReader(strings.NewReader("first\n  second  \n"))
	ctx := context.Background()

	line, err := reader.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = reader.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = reader.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestInputReader_ContextEndsWait(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	reader := NewInputReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := reader.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() { _, _ = pw.Write([]byte("later\n")) }()
	line, err := reader.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "later", line)
}

func TestConfirmPrompt(t *testing.T) {
	reader := NewInputReader(strings.NewReader("YES\nn\n"))
	ctx := context.Background()

	ok, err := ConfirmPrompt(ctx, reader, "Clear?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ConfirmPrompt(ctx, reader, "Clear?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ConfirmPrompt(ctx, reader, "Clear?")
	require.NoError(t, err)
	assert.False(t, ok)
}
