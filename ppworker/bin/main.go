// Copyright 2026, Met Office

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/config"
	"github.com/MetOffice/pp-systems-framework/remote"
	"github.com/MetOffice/pp-systems-framework/steps"
	"github.com/MetOffice/pp-systems-framework/version"
)

type cliArgs struct {
	Config string `arg:"--config" help:"worker config file (YAML)"`
	Listen string `arg:"--listen" help:"listen address (ex: 127.0.0.1:9250)"`
}

func (cliArgs) Version() string {
	return "ppworker " + version.Version()
}

func main() {
	var args cliArgs
	arg.MustParse(&args)

	cfg := config.Worker{ListenAddress: "127.0.0.1:9250"}
	if args.Config != "" {
		if err := config.Load(args.Config, &cfg); err != nil {
			log.Fatalf("%s", err)
		}
	}
	if args.Listen != "" {
		cfg.ListenAddress = args.Listen
	}

	api := remote.NewAPI(steps.Registry, log.NewEntry(log.StandardLogger()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("signal received - shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := api.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %s", err)
		}
	}()

	if err := api.Run(cfg.ListenAddress); err != nil && err != http.ErrServerClosed {
		log.Fatalf("worker stopped: %s", err)
	}
}
