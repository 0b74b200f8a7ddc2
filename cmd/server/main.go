package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/grayic/bluesky-scheduler/configs"
	"github.com/grayic/bluesky-scheduler/internal/api/handlers"
	"github.com/grayic/bluesky-scheduler/internal/api/middleware"
	"github.com/grayic/bluesky-scheduler/internal/bluesky"
	job "github.com/grayic/bluesky-scheduler/internal/jobs"
	"github.com/grayic/bluesky-scheduler/internal/models"
	"github.com/grayic/bluesky-scheduler/internal/repository"
	"github.com/grayic/bluesky-scheduler/internal/scheduler"
	"github.com/grayic/bluesky-scheduler/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return origin == cfg.FrontendURL
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	credentialRepo := repository.NewCredentialRepository(db)
	postRepo := repository.NewPostRepository(db)

	blueskyClient := bluesky.NewClient(cfg.BlueskyHost)
	r2Service := service.NewR2Service(*cfg)

	authService := service.NewAuthService(*cfg, credentialRepo, blueskyClient)
	postService := service.NewPostService(postRepo, credentialRepo, r2Service)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Post("/login", auth.Login)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Post("/logout", auth.Logout)
	api.Get("/user/info", auth.GetUserInfo)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/update", post.UpdatePost)
	api.Post("/posts/remove", post.RemovePost)

	// cron jobs
	purgeJob := job.NewPurgeJob(postRepo)

	c := cron.New()
	c.AddFunc("@daily", purgeJob.PurgePublished)
	c.Start()

	// scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(
		cfg.SchedulerInterval,
		postRepo,
		credentialRepo,
		scheduler.NewClientFactory(blueskyClient),
		r2Service,
		[]byte(cfg.SecretKey),
		scheduler.WithNotifier(func(p *models.Post) {
			slog.Info("post transitioned", "post_id", p.ID, "status", p.Status, "error", p.Error)
		}),
	)
	go sched.Run(ctx)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, db, cancel)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	cancel()
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
