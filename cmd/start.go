package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"mrbox/core/loader"
	"mrbox/core/logger"
	"mrbox/core/middleware/auth"
	"mrbox/core/middleware/rayid"
	"mrbox/core/watcher"
	"mrbox/feature/jobs"
	"mrbox/feature/status"
	"mrbox/feature/sync"
	"mrbox/feature/verify"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Watch the local tree and keep the remote store in sync",
	Long: `Starts the watcher and the sync engine, and the status API when
server.enabled is set. Runs until SIGINT or SIGTERM; the event being handled
finishes and queued events are dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		logg := e.logg

		window := time.Duration(e.cfg.Sync.RenameWindowMs) * time.Millisecond
		w, err := watcher.New(e.ws.FS, e.ws.LocalRoot, window, logg.Named("watcher"))
		if err != nil {
			return err
		}

		dispatcher := jobs.NewDispatcher(e.ws, jobs.NewStreamingRunner(e.cfg.Job), logg.Named("jobs"))
		engine := sync.NewEngine(e.ws, dispatcher, sync.WithLogger(logg.Named("sync")))

		var app *fiber.App
		if e.cfg.Server.Enabled {
			app, err = newStatusApp(e, engine)
			if err != nil {
				return err
			}
			go func() {
				logg.Info("Starting status API", zap.String("port", e.cfg.Server.Port))
				if err := app.Listen(e.cfg.Server.Addr()); err != nil {
					logg.Error("Status API stopped", zap.Error(err))
				}
			}()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return w.Run(gctx) })
		g.Go(func() error { return engine.Run(gctx, w.Events()) })

		logg.Info("Watching for changes", zap.String("root", e.ws.LocalRoot))
		err = g.Wait()

		logg.Info("Shutting down...")
		if app != nil {
			if serr := app.Shutdown(); serr != nil {
				logg.Warn("Failed to stop status API", zap.Error(serr))
			}
		}
		return err
	},
}

// newStatusApp builds the fiber app serving the status API.
func newStatusApp(e *env, engine *sync.Engine) (*fiber.App, error) {
	logg := e.logg.Named("status")

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every log line of a request carries it.
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
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
	app.Use(auth.New(auth.Config{
		ApiKey: e.cfg.Server.ApiKey,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/status/health"
		},
	}))

	verifier := verify.NewService(e.ws, logg,
		verify.WithConcurrency(e.cfg.Verify.Concurrency),
		verify.WithCacheTTL(e.cfg.Server.ReportTTL()),
		verify.ReadOnly(),
	)

	mgr := loader.NewManager(logg)
	mgr.Register(status.NewFeature(status.NewService(e.ws.Catalogue, verifier, engine, engine, logg), true))
	if err := mgr.LoadAll(app); err != nil {
		return nil, err
	}
	return app, nil
}

func init() {
	RootCmd.AddCommand(startCmd)
}
