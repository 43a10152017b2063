package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger       zerolog.Logger
	AllowOrigins string
}

// Register attaches the middlewares shared by every route. Correlation runs before
// observability and access logging so both can tag lines with the request id.
func Register(app *fiber.App, cfg Config) {
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(CorrelationID())
	app.Use(Observability(cfg.Logger))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency} cid=${locals:" + LocalCorrelationID + "}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + HeaderCorrelationID,
		AllowMethods:  "GET,POST,OPTIONS",
		ExposeHeaders: HeaderCorrelationID + ", X-Cache-Hit, Retry-After",
	}))
}
