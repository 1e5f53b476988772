package utils

import "strings"

// ChatCommand is one line typed into the chat loop. Lines starting with
// "/" are commands; everything else is a message.
type ChatCommand struct {
	IsCommand bool
	Name      string // lower-cased, without the slash
	Args      string
	Content   string
}

func ParseCommand(input string) ChatCommand {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return ChatCommand{Content: trimmed}
	}

	name, args, _ := strings.Cut(trimmed[1:], " ")
	return ChatCommand{
		IsCommand: true,
		Name:      strings.ToLower(name),
		Args:      strings.TrimSpace(args),
		Content:   trimmed,
	}
}
