package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "subsight",
		Usage: "Search Reddit with optimized keywords and audience scoping",
		Description: `Subsight answers natural-language questions with Reddit posts.

		It derives compact search keywords from a question, searches Reddit
		with them, scopes searches to named audiences (collections of
		subreddits), surfaces recurring topics in an audience's recent posts
		and archives selected posts to an SQLite database, all behind an
		HTTP API.

		Flags can generally be set via environment variables, e.g.:

		--database => SUBSIGHT_DATABASE=subsight.db
		--port => SUBSIGHT_PORT=3000
		`,
		Before: func(ctx *cli.Context) error {
			// Load a .env file if one is present; real environment wins.
			if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.WithError(err).Warn("Failed to load .env file")
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			searchCmd(),
			audiencesCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
