package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/elee1766/chatportal/src/storage"
)

// MigrateCmd manages database migrations
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Run pending migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show migration status"`
}

// MigrateUpCmd runs pending migrations
type MigrateUpCmd struct{}

// Run executes the migrate up command
func (c *MigrateUpCmd) Run(ctx context.Context, cli *CLI) error {
	db, err := openDatabase(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.Migrations(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Database %s is at version %d\n", db.Path(), latestVersion(status))
	return nil
}

// MigrateStatusCmd shows migration status
type MigrateStatusCmd struct{}

// Run executes the migrate status command
func (c *MigrateStatusCmd) Run(ctx context.Context, cli *CLI) error {
	db, err := openDatabase(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.Migrations(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s\n\n", db.Path())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, m := range status {
		applied := "pending"
		if m.AppliedAt != nil {
			applied = m.AppliedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, m.Name, applied)
	}
	return w.Flush()
}

// openDatabase opens the configured session database, applying
// migrations on the way
func openDatabase(cli *CLI) (*storage.DB, error) {
	manager, err := cli.loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(manager.GetConfig().Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func latestVersion(status []storage.MigrationStatus) int {
	latest := 0
	for _, m := range status {
		if m.AppliedAt != nil && m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}
