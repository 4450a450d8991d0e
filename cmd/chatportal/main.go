package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	ConfigFile string `name:"config" short:"C" type:"path" help:"Configuration file to use instead of the user config"`
	BaseURL    string `help:"Chat portal API base URL"`
	Database   string `type:"path" help:"Session database path"`
	LogLevel   string `help:"Log level (debug, info, warn, error)"`
	Theme      string `help:"Color theme"`

	// Account commands
	Login    LoginCmd    `cmd:"" help:"Sign in to the chat portal"`
	Register RegisterCmd `cmd:"" help:"Create an account and sign in"`
	Guest    GuestCmd    `cmd:"" help:"Continue as a guest"`
	Logout   LogoutCmd   `cmd:"" help:"Sign out and forget the session"`
	Whoami   WhoamiCmd   `cmd:"" help:"Show the current session"`

	// Conversation commands
	List   ListCmd   `cmd:"" aliases:"ls" help:"List conversations"`
	New    NewCmd    `cmd:"" help:"Create a conversation"`
	Rename RenameCmd `cmd:"" help:"Rename a conversation"`
	Delete DeleteCmd `cmd:"" aliases:"rm" help:"Delete a conversation"`
	Show   ShowCmd   `cmd:"" help:"Print a conversation"`
	Send   SendCmd   `cmd:"" help:"Send a single message"`
	Chat   ChatCmd   `cmd:"" help:"Start an interactive chat"`

	// Maintenance commands
	Migrate MigrateCmd `cmd:"" help:"Database migrations"`
	Config  ConfigCmd  `cmd:"" help:"Inspect configuration"`
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chatportal"),
		kong.Description("Terminal client for the chat portal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)

	err := ctx.Run(&cli)
	if err != nil {
		stop()
		NewErrorHandler(createCLILogger(cli.LogLevel)).HandleError(err)
	}
}
