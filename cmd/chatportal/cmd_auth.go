package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/elee1766/chatportal/src/portalapi"
)

// LoginCmd signs in with a username and password
type LoginCmd struct {
	Username string `arg:"" optional:"" help:"Account username (prompted when omitted)"`
	Password string `env:"CHATPORTAL_PASSWORD" help:"Account password (prompted when omitted)"`
}

// Run executes the login command
func (c *LoginCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	in := bufio.NewReader(os.Stdin)
	username := c.Username
	if username == "" {
		if username, err = promptLine(in, os.Stderr, "Username: "); err != nil {
			return err
		}
	}
	password := c.Password
	if password == "" {
		if password, err = promptPassword(in, os.Stderr, "Password: "); err != nil {
			return err
		}
	}

	if err := rt.App.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(rt.Out, "Signed in as %s\n", rt.App.Session.Username())
	return nil
}

// RegisterCmd creates a new account
type RegisterCmd struct {
	Username string `arg:"" optional:"" help:"Account username (prompted when omitted)"`
	Email    string `help:"Email address"`
	Password string `env:"CHATPORTAL_PASSWORD" help:"Account password (prompted when omitted)"`
}

// Run executes the register command
func (c *RegisterCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	in := bufio.NewReader(os.Stdin)
	req := portalapi.RegisterRequest{Username: c.Username, Email: c.Email, Password: c.Password}
	if req.Username == "" {
		if req.Username, err = promptLine(in, os.Stderr, "Username: "); err != nil {
			return err
		}
	}
	if req.Password == "" {
		if req.Password, err = promptPassword(in, os.Stderr, "Password: "); err != nil {
			return err
		}
	}

	if err := rt.App.Register(ctx, req); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintf(rt.Out, "Account created, signed in as %s\n", rt.App.Session.Username())
	return nil
}

// GuestCmd starts a guest session
type GuestCmd struct {
	Name string `arg:"" optional:"" help:"Display name for your messages"`
}

// Run executes the guest command
func (c *GuestCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.App.Guest(ctx, c.Name); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Continuing as %s (guest)\n", rt.App.Session.Username())
	return nil
}

// LogoutCmd forgets the saved session
type LogoutCmd struct{}

// Run executes the logout command
func (c *LogoutCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.App.Session.IsSignedIn() {
		fmt.Fprintln(rt.Out, "Not signed in")
		return nil
	}
	if err := rt.App.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(rt.Out, "Signed out")
	return nil
}

// WhoamiCmd shows the current session
type WhoamiCmd struct {
	Remote bool `help:"Ask the server who the token belongs to"`
}

// Run executes the whoami command
func (c *WhoamiCmd) Run(ctx context.Context, cli *CLI) error {
	rt, err := cli.start(ctx, startOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	sess := rt.App.Session
	w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Server:\t%s\n", sess.Server())

	switch {
	case sess.IsGuest():
		fmt.Fprintf(w, "User:\t%s (guest)\n", sess.Username())
	case sess.IsAuthenticated():
		fmt.Fprintf(w, "User:\t%s\n", valueOr(sess.Username(), "unknown"))
		fmt.Fprintf(w, "Token:\t%s\n", maskToken(sess.Tokens().Access))
		if exp, ok := sess.ExpiresAt(); ok {
			state := "valid"
			if sess.Expired() {
				state = "expired"
			}
			fmt.Fprintf(w, "Expires:\t%s (%s)\n", exp.Local().Format(time.RFC1123), state)
		}
	default:
		fmt.Fprintln(w, "User:\tnot signed in")
	}
	if active := sess.ActiveConversation(); active != "" {
		fmt.Fprintf(w, "Active conversation:\t%s\n", active)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !c.Remote || !sess.IsAuthenticated() {
		return nil
	}
	user, err := rt.App.Client.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	fmt.Fprintf(rt.Out, "Server confirms %s\n", strings.TrimSpace(user.Username+" "+bracket(user.Email)))
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func bracket(s string) string {
	if s == "" {
		return ""
	}
	return "<" + s + ">"
}
