package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"submission-composer/core/config"
	"submission-composer/core/database"
	"submission-composer/core/loader"
	"submission-composer/core/logger"
	"submission-composer/core/middleware/auth"
	"submission-composer/core/middleware/rayid"
	"submission-composer/core/storage"
	"submission-composer/feature/batch"
	"submission-composer/feature/integrity"
	"submission-composer/feature/metadata"
	"submission-composer/feature/submission/store"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title DSpace Submission Composer API
// @version 1.0
// @description Read-only status API for submission batches.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the status API server",
	Long:  `Starts the HTTP server exposing batch status, reconciliation and integrity checks.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		if workflowFlag != "" {
			cfg.Workflow.Name = workflowFlag
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)
		logg = logg.With(zap.String("workflow", cfg.Workflow.Name))

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		logg.Info("Connected to submission database", zap.String("driver", cfg.Database.Driver))

		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		mapping, err := metadata.LoadMappingFile(cfg.Workflow.MappingPath)
		if err != nil {
			logg.Fatal("Failed to load metadata mapping", zap.Error(err))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		batchLoader := batch.NewLoader(client, cfg.Storage.Bucket, cfg.Workflow, mapping)

		mgr := loader.NewManager()
		mgr.Register(batch.NewFeature(store.New(db), batchLoader, cfg.Server.CacheTTL(), logg))
		mgr.Register(integrity.NewFeature(client, cfg.Storage.Bucket, cfg.Workflow.Name, logg, db))

		// RayID first so every log line below carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
