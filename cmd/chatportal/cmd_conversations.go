package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/elee1766/chatportal/src/portalapi"
)

// ListCmd lists the conversations of the current user
type ListCmd struct {
	Offline bool   `help:"Show the last fetched list without contacting the server"`
	Format  string `help:"Output format (table, json)" enum:"table,json" default:"table"`
}

// Run executes the list command
func (c *ListCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	var convs []portalapi.Conversation
	if c.Offline {
		convs, err = rt.App.CachedConversations(ctx)
	} else {
		convs, err = rt.App.Refresh(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	switch c.Format {
	case "json":
		return printJSON(rt, convs)
	default:
		fmt.Fprintln(rt.Out, rt.Renderer.ConversationList(convs, portalapi.ID(rt.App.Session.ActiveConversation())))
		return nil
	}
}

// NewCmd creates a conversation
type NewCmd struct {
	Title []string `arg:"" optional:"" help:"Conversation title"`
}

// Run executes the new command
func (c *NewCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	conv, err := rt.App.NewChat(ctx, strings.Join(c.Title, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Created conversation %s: %s\n", conv.ID, rt.Renderer.Title(conv, 0))
	return nil
}

// RenameCmd renames a conversation
type RenameCmd struct {
	ID    string   `arg:"" help:"Conversation ID"`
	Title []string `arg:"" optional:"" help:"New title"`
}

// Run executes the rename command
func (c *RenameCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	title := strings.Join(c.Title, " ")
	if err := rt.App.Rename(ctx, portalapi.ID(c.ID), title); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Renamed conversation %s to %s\n", c.ID, renamedTitle(rt.App.Conversations, portalapi.ID(c.ID), title))
	return nil
}

// DeleteCmd deletes a conversation
type DeleteCmd struct {
	ID  string `arg:"" help:"Conversation ID"`
	Yes bool   `short:"y" help:"Do not ask for confirmation"`
}

// Run executes the delete command
func (c *DeleteCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if !c.Yes && !confirm(bufio.NewReader(os.Stdin), os.Stderr, fmt.Sprintf("Delete conversation %s?", c.ID)) {
		return errors.New("delete cancelled")
	}
	if err := rt.App.Delete(ctx, portalapi.ID(c.ID)); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Deleted conversation %s\n", c.ID)
	return nil
}

// ShowCmd prints a conversation's messages
type ShowCmd struct {
	ID     string `arg:"" optional:"" help:"Conversation ID (defaults to the active one)"`
	Format string `help:"Output format (text, json)" enum:"text,json" default:"text"`
}

// Run executes the show command
func (c *ShowCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	id := portalapi.ID(c.ID)
	if id.IsZero() {
		id = portalapi.ID(rt.App.Session.ActiveConversation())
	}
	if id.IsZero() {
		return errors.New("no conversation given and none is active")
	}
	if err := rt.App.Open(ctx, id); err != nil {
		return err
	}

	msgs := rt.App.Thread.Messages()
	if c.Format == "json" {
		return printJSON(rt, msgs)
	}
	fmt.Fprintln(rt.Out, rt.Renderer.Thread(msgs, rt.self(), false))
	return nil
}

func printJSON(rt *cmdEnv, v any) error {
	enc := json.NewEncoder(rt.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
