package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mission-progression-system/handlers"
	"mission-progression-system/middleware"
	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
)

// ServeCmd starts the HTTP API together with the profile sync worker and
// the reconciliation schedule.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.catalog.Snapshot().Len() == 0 {
				log.Println("🌱 Catalog empty, seeding from embedded missions")
				if _, err := a.catalog.Reseed(ctx); err != nil {
					return err
				}
			}

			app := fiber.New(fiber.Config{
				BodyLimit: 1 * 1024 * 1024,
			})

			app.Use(cors.New(cors.Config{
				AllowOrigins:     a.cfg.Origins(),
				AllowMethods:     "GET,POST,OPTIONS,HEAD",
				AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Device-ID",
				ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
				AllowCredentials: true,
				MaxAge:           86400,
			}))
			// 🔐❗ GLOBAL: only Gateway requests allowed
			app.Use(middleware.GatewayAuthMiddleware(a.cfg.ServiceToken))

			authClient := services.NewAuthServiceClient(a.cfg.AuthServiceURL, a.cfg.ServiceToken)

			handlers.SetupMissionRoutes(app, a.missions)
			handlers.SetupEventRoutes(app, a.ingest, a.cfg.EventsToken)
			handlers.SetupProgressionRoutes(app, a.progression, a.stream, authClient)
			handlers.SetupAdminRoutes(app, a.catalog, a.reconcile)

			if _, err := a.reconcile.StartReconcileScheduler(ctx, a.cfg.ReconcileInterval); err != nil {
				return err
			}

			if a.syncWorker != nil {
				a.syncWorker.Start(ctx)
				log.Println("✅ Profile Sync Worker running")
			}

			go func() {
				if err := app.Listen(a.cfg.Addr()); err != nil {
					log.Printf("Server error: %v", err)
					stop()
				}
			}()

			log.Printf("✅ Server running on http://localhost%s", a.cfg.Addr())
			log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
			log.Printf("✅ CORS configured for origins: %s", a.cfg.Origins())

			<-ctx.Done()
			log.Println("Shutting down server...")
			return app.ShutdownWithTimeout(10 * time.Second)
		},
	}
}
