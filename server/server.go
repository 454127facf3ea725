// Package server exposes the HTTP API. Handlers are thin: they parse and
// precondition-check the request, call the orchestrator or store, and map the
// error taxonomy onto status codes.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"subsight/models"
	"subsight/search"
)

// Orchestrator is the use-case surface the handlers call into.
type Orchestrator interface {
	Search(ctx context.Context, question string) (*search.Result, error)
	SearchAudience(ctx context.Context, question string, audience string) ([]models.Post, error)
	FilterPosts(ctx context.Context, topic string, audience string) ([]models.Post, error)
	Topics(ctx context.Context, audience string) ([]string, error)
	Comments(ctx context.Context, permalink string) ([]models.Comment, error)
	Save(ctx context.Context, post models.Post) (bool, error)
}

type ServerConfig struct {

	// Allowed CORS origin for the browser frontend
	CORSOrigin string

	// The orchestrator handling search, topics and save use cases
	Orchestrator Orchestrator

	// The audience store backing the audience CRUD endpoints
	Audiences search.AudienceStore
}

type searchRequest struct {
	Question string `json:"question"`
}

type commentsRequest struct {
	Permalink string `json:"permalink"`
}

type createAudienceRequest struct {
	Name       string   `json:"name"`
	Subreddits []string `json:"subreddits"`
}

type audienceSearchRequest struct {
	Question string `json:"question"`
	Audience string `json:"audience"`
}

type topicsRequest struct {
	Audience string `json:"audience"`
}

type filterPostsRequest struct {
	Topic    string `json:"topic"`
	Audience string `json:"audience"`
}

// Returns a fiber.App instance serving the subsight HTTP API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.CORSOrigin,
		AllowHeaders: "Content-Type",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/api/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body.")
		}
		question := strings.TrimSpace(req.Question)
		if question == "" {
			return badRequest(c, "No question provided.")
		}

		result, err := config.Orchestrator.Search(c.UserContext(), question)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(result)
	})

	app.Post("/api/comments", func(c *fiber.Ctx) error {
		var req commentsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body.")
		}
		permalink := strings.TrimSpace(req.Permalink)
		if permalink == "" {
			return badRequest(c, "No permalink provided.")
		}

		comments, err := config.Orchestrator.Comments(c.UserContext(), permalink)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"comments": comments})
	})

	app.Post("/api/save", func(c *fiber.Ctx) error {
		var post models.Post
		if err := c.BodyParser(&post); err != nil {
			return badRequest(c, "Invalid request body.")
		}

		created, err := config.Orchestrator.Save(c.UserContext(), post)
		if err != nil {
			return errorResponse(c, err)
		}
		if !created {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Post already saved."})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post saved successfully."})
	})

	app.Get("/api/audiences", func(c *fiber.Ctx) error {
		audiences, err := config.Audiences.ListAudiences(c.UserContext())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"audiences": audiences})
	})

	app.Post("/api/audiences", func(c *fiber.Ctx) error {
		var req createAudienceRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body.")
		}

		if _, err := config.Audiences.CreateAudience(c.UserContext(), req.Name, req.Subreddits); err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Audience created successfully."})
	})

	app.Post("/api/search_audience", func(c *fiber.Ctx) error {
		var req audienceSearchRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body.")
		}
		question := strings.TrimSpace(req.Question)
		audience := strings.TrimSpace(req.Audience)
		if question == "" || audience == "" {
			return badRequest(c, "Question and audience are required.")
		}

		posts, err := config.Orchestrator.SearchAudience(c.UserContext(), question, audience)
		if err != nil {
			return errorResponse(c, err)
		}
		// Topic ranking is fetched via /api/get_topics, not inline.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"posts":  posts,
			"topics": []string{},
		})
	})

	app.Post("/api/get_topics", func(c *fiber.Ctx) error {
		var req topicsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body.")
		}
		audience := strings.TrimSpace(req.Audience)
		if audience == "" {
			return badRequest(c, "No audience provided.")
		}

		topics, err := config.Orchestrator.Topics(c.UserContext(), audience)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"topics": topics})
	})

	app.Post("/api/filter_posts", func(c *fiber.Ctx) error {
		var req filterPostsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body.")
		}
		topic := strings.TrimSpace(req.Topic)
		audience := strings.TrimSpace(req.Audience)
		if topic == "" || audience == "" {
			return badRequest(c, "Topic and audience are required.")
		}

		posts, err := config.Orchestrator.FilterPosts(c.UserContext(), topic, audience)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"posts": posts})
	})

	return app
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// errorResponse maps the error taxonomy onto HTTP status codes. Everything
// unknown is a 500 so no fault escapes the boundary unhandled.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConflict):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	}

	if status == fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"route": c.Route().Path,
			"error": err,
		}).Error("Request failed")
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
