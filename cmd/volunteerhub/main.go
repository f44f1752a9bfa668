// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/database"
	"codeberg.org/oliverandrich/volunteerhub/internal/server"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "volunteerhub",
		Usage:   "Volunteer project listing service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API and the expiry scheduler",
				Action: server.Run,
			},
			migrateCommand(),
			seedAdminCommand(),
			expireNowCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateCommand() *cli.Command {
	step := func(dir database.Direction) cli.ActionFunc {
		return func(_ context.Context, cmd *cli.Command) error {
			cfg := config.NewFromCLI(cmd)
			server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

			db, err := database.OpenWithoutMigrations(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db.DB, dir); err != nil {
				return err
			}
			version, err := database.Version(db.DB)
			if err != nil {
				return err
			}
			fmt.Printf("database at version %d\n", version)
			return nil
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back database migrations",
		Commands: []*cli.Command{
			{Name: "up", Usage: "Apply all pending migrations", Action: step(database.Up)},
			{Name: "down", Usage: "Roll back the latest migration", Action: step(database.Down)},
			{Name: "reset", Usage: "Roll back all migrations", Action: step(database.Reset)},
		},
	}
}

func seedAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed-admin",
		Usage: "Create an admin account or reset its password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Admin email address", Required: true},
			&cli.StringFlag{Name: "name", Usage: "Admin display name"},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Admin password",
				Sources: cli.EnvVars("ADMIN_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.String("password") == "" {
				return errors.New("--password or ADMIN_PASSWORD is required")
			}

			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			created, err := app.Auth.EnsureAdmin(ctx, cmd.String("email"), cmd.String("name"), cmd.String("password"))
			if err != nil {
				return err
			}
			if created {
				fmt.Println("admin created")
			} else {
				fmt.Println("admin password updated")
			}
			return nil
		},
	}
}

func expireNowCommand() *cli.Command {
	return &cli.Command{
		Name:  "expire-now",
		Usage: "Run the event expiry sweep once and print its report",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Expiry.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newApp(cmd *cli.Command) (*server.App, error) {
	cfg := config.NewFromCLI(cmd)
	server.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	return server.NewApp(cfg)
}
