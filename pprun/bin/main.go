// Copyright 2026, Met Office

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	arg "github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/config"
	"github.com/MetOffice/pp-systems-framework/graph"
	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/remote"
	"github.com/MetOffice/pp-systems-framework/resolve"
	"github.com/MetOffice/pp-systems-framework/sched"
	"github.com/MetOffice/pp-systems-framework/steps"
	"github.com/MetOffice/pp-systems-framework/version"
)

type cliArgs struct {
	Pipeline  string `arg:"positional,required" help:"pipeline description file (YAML)"`
	Config    string `arg:"--config" help:"runner config file (YAML)"`
	Backend   string `arg:"--backend" help:"sequential | parallel | distributed"`
	Workers   int    `arg:"--workers" help:"worker count for the parallel backend"`
	WorkerURL string `arg:"--worker-url" help:"worker service URL for the distributed backend"`
	Verbose   bool   `arg:"--verbose" help:"log every node invocation"`
}

func (cliArgs) Version() string {
	return "pprun " + version.Version()
}

func main() {
	var args cliArgs
	arg.MustParse(&args)

	cfg := config.Defaults()
	if args.Config != "" {
		if err := config.Load(args.Config, &cfg); err != nil {
			log.Fatalf("%s", err)
		}
	}
	if args.Backend != "" {
		cfg.Backend = args.Backend
	}
	if args.Workers > 0 {
		cfg.Workers = args.Workers
	}
	if args.WorkerURL != "" {
		cfg.WorkerURL = args.WorkerURL
	}
	if args.Verbose {
		cfg.Verbose = true
	}

	edges, settings, err := config.LoadPipeline(args.Pipeline)
	if err != nil {
		log.Fatalf("%s", err)
	}
	g, err := graph.Build(edges, settings)
	if err != nil {
		log.Fatalf("cannot build pipeline graph: %s", err)
	}

	logger := log.WithFields(log.Fields{"pipeline": args.Pipeline})
	schedCfg := sched.Config{
		Graph:    g,
		Resolver: resolve.NewResolver(steps.Registry),
		Workers:  cfg.Workers,
		Logger:   logger,
	}
	if cfg.Verbose {
		schedCfg.Hook = sched.VerboseHook(logger)
	}
	if cfg.Backend == sched.BackendDistributed {
		if cfg.WorkerURL == "" {
			log.Fatalf("distributed backend requires a worker URL")
		}
		schedCfg.TaskRunner = remote.NewClient(&http.Client{}, cfg.WorkerURL)
	}

	s, err := sched.Make(cfg.Backend, schedCfg)
	if err != nil {
		log.Fatalf("%s", err)
	}

	// First signal cancels the run cooperatively; in-flight nodes finish.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("signal received - cancelling run")
		cancel()
	}()

	report, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("%s", err)
	}

	for _, key := range g.Nodes() {
		res := report.Results[key]
		fmt.Printf("%-40s %s\n", key, proto.StateName[res.State])
	}
	if err := report.Err(); err != nil {
		log.Fatalf("%s", err)
	}
}
