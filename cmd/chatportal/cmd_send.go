package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elee1766/chatportal/src/portalapi"
)

// SendCmd sends one message and prints the reply
type SendCmd struct {
	Conversation string   `short:"c" help:"Conversation ID (a new conversation is created when omitted)"`
	Text         []string `arg:"" optional:"" help:"Message text, read from stdin when omitted"`
}

// Run executes the send command
func (c *SendCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	text := strings.Join(c.Text, " ")
	if text == "" || text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		text = string(data)
	}

	if c.Conversation != "" {
		if err := rt.App.Open(ctx, portalapi.ID(c.Conversation)); err != nil {
			return err
		}
	}

	ex, err := rt.App.Send(ctx, text)
	if err != nil {
		return err
	}

	if ex.Created {
		conv, _ := rt.App.Conversations.Find(ex.ConversationID)
		fmt.Fprintf(os.Stderr, "Started conversation %s: %s\n", ex.ConversationID, rt.Renderer.Title(conv, 0))
	}
	if ex.Reply == nil {
		return errors.New("the server sent no reply")
	}
	fmt.Fprintln(rt.Out, rt.Renderer.Content(ex.Reply.Content))
	return nil
}
