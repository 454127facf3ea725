package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"subsight/db"
)

func audiencesCmd() *cli.Command {
	return &cli.Command{
		Name:  "audiences",
		Usage: "Manage named audiences",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all audiences as JSON lines",
				Flags: []cli.Flag{
					databaseFlag(),
				},
				Action: func(ctx *cli.Context) error {
					store, err := db.New(ctx.String("database"))
					if err != nil {
						return err
					}
					defer store.Close()

					audiences, err := store.ListAudiences(ctx.Context)
					if err != nil {
						return err
					}

					encoder := json.NewEncoder(os.Stdout)
					for _, audience := range audiences {
						if err := encoder.Encode(audience); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new audience",
				ArgsUsage: "<name> <subreddit>...",
				Flags: []cli.Flag{
					databaseFlag(),
				},
				Action: func(ctx *cli.Context) error {
					args := ctx.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("usage: audiences create <name> <subreddit>...")
					}

					database := ctx.String("database")
					if err := db.Migrate(database); err != nil {
						return fmt.Errorf("migrate database: %w", err)
					}
					store, err := db.New(database)
					if err != nil {
						return err
					}
					defer store.Close()

					audience, err := store.CreateAudience(ctx.Context, args[0], args[1:])
					if err != nil {
						return err
					}
					log.WithFields(log.Fields{
						"audience":   audience.Name,
						"subreddits": strings.Join(audience.Subreddits, ", "),
					}).Info("Audience created")
					return nil
				},
			},
		},
	}
}
