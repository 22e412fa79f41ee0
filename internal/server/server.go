package server

import (
	"backend-veloroute/internal/auth"
	"backend-veloroute/internal/config"
	"backend-veloroute/internal/hazard"
	"backend-veloroute/internal/navigation"
	"backend-veloroute/internal/ridelog"
	"backend-veloroute/internal/routing"
	"backend-veloroute/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Nav    *navigation.Manager
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	routingClient := routing.NewClient(s.Cfg.RoutingURL, s.Cfg.RoutingAPIKey, s.Cfg.RoutingTimeout)
	routeStore := routing.NewStore(s.DB)
	hazardSvc := hazard.NewService(s.DB)
	ridelogSvc := ridelog.NewService(s.DB)
	s.Nav = navigation.NewManager(s.Cfg.Nav, routingClient, s.Stream)

	hazard.RegisterRoutes(s.App.Group("/hazards"), hazardSvc, jwtMiddleware)
	routing.RegisterRoutes(s.App.Group("/routes"), routingClient, routeStore, jwtMiddleware)
	navigation.RegisterRoutes(s.App.Group("/navigation"), s.Nav, hazardSvc, routeStore, ridelogSvc, jwtMiddleware)
	ridelog.RegisterRoutes(s.App.Group("/ridelog"), ridelogSvc)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
