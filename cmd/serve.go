package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"subsight/config"
	"subsight/db"
	"subsight/nlp"
	"subsight/reddit"
	"subsight/search"
	"subsight/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the subsight HTTP API",
		Description: `Starts the subsight HTTP server.

Runs database migrations, connects to the Reddit API and the configured
keyword extraction backend and serves the search, audience, topic and
archive endpoints.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"SUBSIGHT_PORT"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "subsight.toml",
				Usage:   "Path to configuration file",
				EnvVars: []string{"SUBSIGHT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "extractor",
				Usage:   "Keyword extraction strategy: textrazor or local",
				EnvVars: []string{"SUBSIGHT_EXTRACTOR"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if ctx.IsSet("extractor") {
				cfg.Extractor.Strategy = ctx.String("extractor")
			}

			database := ctx.String("database")
			if err := db.Migrate(database); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			store, err := db.New(database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			orchestrator, err := buildOrchestrator(cfg, store)
			if err != nil {
				return err
			}

			app := server.Server(&server.ServerConfig{
				CORSOrigin:   cfg.Server.CORSOrigin,
				Orchestrator: orchestrator,
				Audiences:    store,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.WithError(err).Error("Error shutting down server")
				}
			}()

			log.WithFields(log.Fields{
				"port":      cfg.Server.Port,
				"extractor": cfg.Extractor.Strategy,
			}).Info("Starting server")

			return app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
		},
	}
}

// buildOrchestrator wires the extractor strategy, Reddit client and topic
// aggregator into an orchestrator backed by the given store.
func buildOrchestrator(cfg *config.Config, store *db.DB) (*search.Orchestrator, error) {
	extractor, err := newExtractor(cfg)
	if err != nil {
		return nil, err
	}

	return search.NewOrchestrator(
		extractor,
		newRedditClient(cfg),
		// Topic ranking always uses the remote analysis backend, whatever
		// the keyword strategy is.
		nlp.NewTopicAggregator(newTextRazor(cfg)),
		store,
		store,
	), nil
}

func newTextRazor(cfg *config.Config) *nlp.TextRazor {
	return nlp.NewTextRazor(nlp.TextRazorConfig{
		APIKey:   os.Getenv("TEXTRAZOR_API_KEY"),
		Endpoint: cfg.Extractor.Endpoint,
		Timeout:  cfg.Extractor.Timeout(),
	})
}

func newExtractor(cfg *config.Config) (nlp.KeywordExtractor, error) {
	switch cfg.Extractor.Strategy {
	case "textrazor":
		return newTextRazor(cfg), nil
	case "local":
		return nlp.NewLocal(), nil
	default:
		return nil, fmt.Errorf("unknown extractor strategy %q", cfg.Extractor.Strategy)
	}
}

func newRedditClient(cfg *config.Config) *reddit.Client {
	var credentials *reddit.Credentials
	clientID := os.Getenv("REDDIT_CLIENT_ID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		credentials = &reddit.Credentials{
			ClientID:     clientID,
			ClientSecret: clientSecret,
		}
	} else {
		log.Warn("No Reddit credentials configured, using the unauthenticated API")
	}

	return reddit.NewClient(reddit.ClientConfig{
		UserAgent:   cfg.Reddit.UserAgent,
		Timeout:     cfg.Reddit.Timeout(),
		Credentials: credentials,
	})
}
