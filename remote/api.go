// Copyright 2026, Met Office

// Package remote implements the worker side of the distributed backend (an
// HTTP task-execution API) and the client the engine uses to submit tasks
// to it. A worker executes one task per request against its own step
// registry and returns the node's terminal result; dependency tracking stays
// with the submitting engine.
package remote

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	cmap "github.com/orcaman/concurrent-map/v2"
	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/sched"
	"github.com/MetOffice/pp-systems-framework/step"
)

const API_ROOT = "/api/v1/"

// API serves the worker endpoints. Handlers are dumb wiring: bind the task,
// hand it to the engine's task executor, return the result.
type API struct {
	registry *step.Registry
	running  cmap.ConcurrentMap[string, proto.Task] // task id -> in-flight task
	logger   *log.Entry
	// --
	echo *echo.Echo
}

// NewAPI creates a worker API executing tasks against registry, and
// registers all routes with an echo server inside the struct.
func NewAPI(registry *step.Registry, logger *log.Entry) *API {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	api := &API{
		registry: registry,
		running:  cmap.New[proto.Task](),
		logger:   logger,
		// --
		echo: echo.New(),
	}

	// Execute a single node task and return its result.
	api.echo.POST(API_ROOT+"tasks", api.runTaskHandler)
	// List the tasks currently executing on this worker.
	api.echo.GET(API_ROOT+"status/running", api.statusRunningHandler)

	api.echo.HideBanner = true
	api.echo.Use(middleware.Recover())

	return api
}

// Run starts the web server and blocks until it stops.
func (api *API) Run(addr string) error {
	api.logger.WithField("addr", addr).Info("worker API listening")
	return api.echo.Start(addr)
}

// Shutdown stops the web server gracefully.
func (api *API) Shutdown(ctx context.Context) error {
	return api.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler, for tests.
func (api *API) Handler() http.Handler {
	return api.echo
}

// POST <API_ROOT>/tasks
func (api *API) runTaskHandler(c echo.Context) error {
	var task proto.Task
	if err := c.Bind(&task); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if task.Call == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task has no call reference")
	}

	tLogger := api.logger.WithFields(log.Fields{
		"runId":  task.RunId,
		"taskId": task.Id,
		"node":   task.Key.String(),
		"call":   task.Call,
	})
	tLogger.Info("executing task")

	api.running.Set(task.Id, task)
	defer api.running.Remove(task.Id)

	res := sched.ExecuteTask(c.Request().Context(), api.registry, task)
	if res.Failed() {
		tLogger.Errorf("task %s: %s", proto.StateName[res.State], res.Error)
	} else {
		tLogger.Info("task complete")
	}

	// The task executed; a step failure is still a successful execution from
	// the protocol's point of view, reported inside the result.
	return c.JSON(http.StatusOK, res)
}

// GET <API_ROOT>/status/running
func (api *API) statusRunningHandler(c echo.Context) error {
	tasks := []proto.Task{}
	for _, task := range api.running.Items() {
		tasks = append(tasks, task)
	}
	return c.JSON(http.StatusOK, tasks)
}
