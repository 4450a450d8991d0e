package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"

	"github.com/elee1766/chatportal/src/portalapi"
)

const defaultWidth = 80

// maskToken masks an access token for display
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// titleFinder looks up a conversation already in the list
type titleFinder interface {
	Find(id portalapi.ID) (portalapi.Conversation, bool)
}

// renamedTitle is the title list holds for id after a rename. The store may
// normalize titles, so typed is only used when the list has no entry.
func renamedTitle(list titleFinder, id portalapi.ID, typed string) string {
	if conv, ok := list.Find(id); ok && conv.Title != "" {
		return conv.Title
	}
	return strings.TrimSpace(typed)
}

// terminalWidth returns configured, falling back to the width of stdout
func terminalWidth(configured int) int {
	if configured > 0 {
		return configured
	}
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// promptLine asks for a single line on stdin
func promptLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(in *bufio.Reader, out io.Writer, label string) (string, error) {
	if !term.IsTerminal(os.Stdin.Fd()) {
		return promptLine(in, out, label)
	}
	fmt.Fprint(out, label)
	password, err := term.ReadPassword(os.Stdin.Fd())
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// confirm asks a yes/no question, defaulting to no
func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	answer, err := promptLine(in, out, question+" [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
