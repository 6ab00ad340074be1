package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"forma/config"
	authControllers "forma/controllers/auth"
	enrollmentControllers "forma/controllers/enrollment"
	trainingControllers "forma/controllers/training"
	"forma/database"
	"forma/engine"
	"forma/routers"
	"forma/utils"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}

	// Engine wiring: every collaborator is constructed once here and
	// injected; there are no package-level service singletons.
	clock := engine.SystemClock{}
	notifier := utils.NewNotifier(cfg)
	renderer := utils.NewRenderer(cfg)
	store := utils.NewDocumentStore(cfg)

	tracker := engine.NewProgressTracker(db, clock)
	issuer := engine.NewCertificateIssuer(db, renderer, store, notifier, clock)
	enrollments := engine.NewEnrollmentService(db, tracker, issuer, notifier, clock)
	scheduler := engine.NewReminderScheduler(db, tracker, notifier, clock)

	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start reminder scheduler: %v", err)
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve static files (certificate documents) from the public folder
	app.Static("/", "./public")

	routers.SetupAuthRoutes(app, authControllers.NewAuthController(db, cfg))
	routers.SetupTrainingRoutes(app, cfg.JWTKey,
		trainingControllers.NewTrainingController(db),
		enrollmentControllers.NewEnrollmentController(db, enrollments, issuer),
	)

	// Stop the scheduler before the listener so an in-flight tick
	// finishes its counter updates.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down...")
		scheduler.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
