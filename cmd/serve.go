package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/doorlock/internal/actuator"
	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/doorlock"
	"github.com/kozaktomas/doorlock/internal/faceengine"
	"github.com/kozaktomas/doorlock/internal/logging"
	"github.com/kozaktomas/doorlock/internal/metrics"
	"github.com/kozaktomas/doorlock/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the door lock",
	Long: `Run the recognition loop and the web control surface.
The door outputs are set to their ready state on start and switched off
on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}

	log := logging.New(cfg.Logging)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cam, err := camera.Open(cfg.Camera)
	if err != nil {
		return err
	}
	engine := faceengine.NewInsightFace(cfg.Engine)

	g, store, err := openGallery(ctx, cfg, engine)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	log.Info().Str("store", cfg.Gallery.Store).Int("enrolled", g.Count()).Int("capacity", g.Capacity()).Msg("gallery ready")

	outputs, err := actuator.OpenOutputs(cfg.Actuator, logging.Component(log, "outputs"))
	if err != nil {
		return err
	}
	door := actuator.NewController(outputs, actuator.Options{
		Dwell:   cfg.Actuator.Dwell,
		Mode:    actuator.DwellMode(cfg.Actuator.DwellMode),
		Logger:  logging.Component(log, "actuator"),
		Metrics: m,
	})
	door.Ready()
	defer door.Close()

	sys := doorlock.NewSystem(doorlock.Deps{
		Camera:   cam,
		Engine:   engine,
		Gallery:  g,
		Actuator: door,
		Logger:   logging.Component(log, "doorlock"),
		Metrics:  m,
	})
	scheduler := doorlock.NewScheduler(sys, cfg.Scheduler, logging.Component(log, "scheduler"))

	server := web.NewServer(cfg.Server, web.Deps{
		Scheduler: scheduler,
		System:    sys,
		Gallery:   g,
		Metrics:   m,
		Logger:    log,
	})

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- scheduler.Run(ctx)
	}()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	log.Info().
		Str("addr", cfg.Server.Addr()).
		Str("camera", cfg.Camera.Driver).
		Str("engine", cfg.Engine.URL).
		Str("dwell_mode", string(door.Mode())).
		Dur("dwell", door.Dwell()).
		Msg("door lock running, press Ctrl+C to stop")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverDone:
		runErr = err
		stop()
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}

	// The scheduler finishes the operation in progress before returning.
	if err := <-schedulerDone; err != nil && !errors.Is(err, context.Canceled) {
		runErr = errors.Join(runErr, fmt.Errorf("scheduler: %w", err))
	}
	return runErr
}
