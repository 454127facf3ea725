package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"subsight/config"
	"subsight/nlp"
)

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search Reddit from the command line",
		ArgsUsage: "<question>",
		Description: `Extracts keywords from the given question and searches Reddit,
printing matching posts as JSON lines to stdout. Log output goes to
stderr so the posts can be piped to other tools.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "subsight.toml",
				Usage:   "Path to configuration file",
				EnvVars: []string{"SUBSIGHT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "subreddit",
				Aliases: []string{"s"},
				Value:   "all",
				Usage:   "Subreddit to search",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   25,
				Usage:   "Maximum number of posts to return",
			},
		},
		Action: func(ctx *cli.Context) error {
			question := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
			if question == "" {
				return fmt.Errorf("no question provided")
			}

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			extractor, err := newExtractor(cfg)
			if err != nil {
				return err
			}

			keywords, err := extractor.Keywords(ctx.Context, question)
			if err != nil {
				return fmt.Errorf("extract keywords: %w", err)
			}
			query := nlp.JoinKeywords(keywords)
			log.WithField("query", query).Info("Searching Reddit")

			searcher := newRedditClient(cfg)
			posts, err := searcher.SearchPosts(ctx.Context, ctx.String("subreddit"), query, ctx.Int("limit"))
			if err != nil {
				return fmt.Errorf("search posts: %w", err)
			}

			encoder := json.NewEncoder(os.Stdout)
			for _, post := range posts {
				if err := encoder.Encode(post); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
