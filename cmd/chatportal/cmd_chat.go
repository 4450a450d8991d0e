package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elee1766/chatportal/src/chat"
	"github.com/elee1766/chatportal/src/portalapi"
)

var errQuit = errors.New("quit")

const chatHelp = `Commands:
  /new [title]        start a new conversation
  /list               refresh and show your conversations
  /open <id>          open a conversation
  /rename <title>     rename the open conversation
  /delete [id]        delete a conversation (the open one by default)
  /refresh            reload the open conversation
  /help               show this help
  /quit               leave the chat
Anything else is sent as a message.`

// ChatCmd starts the interactive chat
type ChatCmd struct {
	Conversation string `short:"c" help:"Conversation ID to open"`
	New          bool   `short:"n" help:"Start in a new conversation"`
}

// Run executes the chat command
func (c *ChatCmd) Run(ctx context.Context, cli *CLI) error {
	r := &repl{out: os.Stdout}
	rt, err := cli.start(ctx, startOptions{
		FileLog: true,
		Callbacks: chat.Callbacks{
			OnMessage: r.onMessage,
			OnPending: r.onPending,
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	r.rt = rt

	if !rt.App.Session.IsSignedIn() && rt.Config.Token == "" {
		fmt.Fprintln(r.out, "Not signed in. Run 'chatportal login' or 'chatportal guest' first.")
		return nil
	}

	active := rt.App.Restore(ctx)
	if _, err := rt.App.Refresh(ctx); err != nil {
		r.printError(fmt.Errorf("working from the cached list: %w", err))
	}

	switch {
	case c.New:
		if _, err := rt.App.NewChat(ctx, ""); err != nil {
			r.printError(err)
		}
	case c.Conversation != "":
		r.open(ctx, portalapi.ID(c.Conversation))
	case !active.IsZero():
		r.open(ctx, active)
	}

	fmt.Fprintf(r.out, "Chatting as %s. Type /help for commands.\n", rt.self())
	return r.loop(ctx, os.Stdin)
}

// repl reads lines from the terminal and drives the app
type repl struct {
	rt    *cmdEnv
	out   io.Writer
	lines chan string
}

func (r *repl) loop(ctx context.Context, in io.Reader) error {
	r.lines = make(chan string)
	go func() {
		defer close(r.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case r.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, r.prompt())
		line, ok := r.next(ctx)
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		err := r.handle(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			r.printError(err)
		}
	}
}

func (r *repl) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-r.lines:
		return line, ok
	}
}

func (r *repl) prompt() string {
	id := r.rt.App.Thread.ConversationID()
	if id.IsZero() {
		return "> "
	}
	conv, _ := r.rt.App.Conversations.Find(id)
	return fmt.Sprintf("[%s] > ", r.rt.Renderer.Title(conv, 24))
}

// handle runs one line of input
func (r *repl) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	name, arg, isCmd := parseCommand(line)
	if !isCmd {
		if strings.HasPrefix(line, "//") {
			line = line[1:]
		}
		_, err := r.rt.App.Send(ctx, line)
		return err
	}

	app := r.rt.App
	switch name {
	case "quit", "exit", "q":
		return errQuit
	case "help", "h", "?":
		fmt.Fprintln(r.out, chatHelp)
	case "new":
		conv, err := app.NewChat(ctx, arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Started conversation %s: %s\n", conv.ID, r.rt.Renderer.Title(conv, 0))
	case "list", "ls":
		convs, err := app.Refresh(ctx)
		if err != nil {
			r.printError(err)
			convs = app.Conversations.Conversations()
		}
		fmt.Fprintln(r.out, r.rt.Renderer.ConversationList(convs, app.Thread.ConversationID()))
	case "open":
		if arg == "" {
			return &chat.ValidationError{Field: "id", Message: "usage: /open <id>"}
		}
		r.open(ctx, portalapi.ID(arg))
	case "rename":
		id := app.Thread.ConversationID()
		if id.IsZero() {
			return errors.New("no conversation is open")
		}
		if err := app.Rename(ctx, id, arg); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Renamed to %s\n", renamedTitle(app.Conversations, id, arg))
	case "delete", "rm":
		id := portalapi.ID(arg)
		if id.IsZero() {
			id = app.Thread.ConversationID()
		}
		if id.IsZero() {
			return errors.New("no conversation is open")
		}
		if !r.ask(ctx, fmt.Sprintf("Delete conversation %s? [y/N] ", id)) {
			return nil
		}
		if err := app.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Deleted conversation %s\n", id)
	case "refresh":
		if _, err := app.Refresh(ctx); err != nil {
			r.printError(err)
		}
		if id := app.Thread.ConversationID(); !id.IsZero() {
			r.open(ctx, id)
		}
	default:
		return fmt.Errorf("unknown command /%s, type /help", name)
	}
	return nil
}

// open loads a conversation and prints its history
func (r *repl) open(ctx context.Context, id portalapi.ID) {
	if err := r.rt.App.Open(ctx, id); err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintln(r.out, r.rt.Renderer.Thread(r.rt.App.Thread.Messages(), r.rt.self(), false))
}

func (r *repl) ask(ctx context.Context, question string) bool {
	fmt.Fprint(r.out, question)
	answer, ok := r.next(ctx)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (r *repl) onMessage(_ portalapi.ID, msg portalapi.Message) {
	// the user's own line is already on screen
	if msg.Sender == r.rt.self() && !msg.IsBot() {
		return
	}
	fmt.Fprintln(r.out, r.rt.Renderer.Message(msg, r.rt.self()))
}

func (r *repl) onPending(_ portalapi.ID, pending bool) {
	if pending {
		fmt.Fprintln(r.out, r.rt.Renderer.Pending())
	}
}

func (r *repl) printError(err error) {
	fmt.Fprintf(r.out, "error: %s\n", describeError(err))
}

// parseCommand splits "/name arg" input. Lines not starting with a single
// slash are messages; "//text" sends "/text".
func parseCommand(line string) (name, arg string, ok bool) {
	if !strings.HasPrefix(line, "/") || strings.HasPrefix(line, "//") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}
