package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/config"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/dashboard"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/demo"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/gateway"
	httpserver "github.com/02loveslollipop/sensor-dashboard/services/dashboard/http"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.DemoMode {
		store := demo.NewStore()
		demo.Seed(store, time.Now().UTC())
		ln, err := demo.Listen(cfg.DemoListenAddr())
		if err != nil {
			log.Fatalf("demo backend error: %v", err)
		}
		cfg.BackendBaseURL = cfg.DemoBaseURL()
		log.Printf("demo backend with %d records listening on %s", store.Len(), ln.Addr())

		go func() {
			if err := demo.NewBackend(store).Serve(ctx, ln); err != nil {
				log.Printf("demo backend error: %v", err)
				cancel()
			}
		}()
	}

	ctrl := dashboard.New(
		gateway.New(cfg.BackendBaseURL, cfg.BackendTimeout),
		upload.New(cfg.BackendBaseURL, cfg.BackendTimeout),
		dashboard.Options{Location: cfg.Location},
	)

	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.BackendTimeout)
	ctrl.LoadDevices(loadCtx)
	loadCancel()
	if view := ctrl.View(); view.DevicesFailed {
		log.Printf("device list unavailable from %s; retry via /api/v1/dashboard/devices/refresh", cfg.BackendBaseURL)
	} else {
		log.Printf("loaded %d devices from %s", len(view.Devices), cfg.BackendBaseURL)
	}

	srv := httpserver.New(cfg, ctrl)
	log.Printf("dashboard listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
