// Copyright 2026, Met Office

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/retry"
)

const (
	// Number of times to attempt a worker status call.
	statusTries = 3
	// Time to wait between status call attempts.
	statusRetryWait = 500 * time.Millisecond
)

// A Client is an HTTP client for the worker API. It satisfies the
// distributed backend's TaskRunner contract.
type Client interface {
	// RunTask submits one node task and blocks until the worker returns its
	// result. The returned error is a transport or protocol failure; a step
	// failure is reported inside the Result.
	RunTask(ctx context.Context, task proto.Task) (proto.Result, error)

	// Running lists the tasks currently executing on the worker.
	Running(ctx context.Context) ([]proto.Task, error)
}

type client struct {
	*http.Client
	baseUrl string
}

// NewClient takes an http.Client and base API URL and creates a Client.
func NewClient(c *http.Client, baseUrl string) Client {
	return &client{
		Client:  c,
		baseUrl: baseUrl,
	}
}

func (c *client) RunTask(ctx context.Context, task proto.Task) (proto.Result, error) {
	// POST /api/v1/tasks
	url := c.baseUrl + API_ROOT + "tasks"

	payload, err := json.Marshal(task)
	if err != nil {
		return proto.Result{}, fmt.Errorf("cannot marshal task %s: %s", task.Id, err)
	}

	// Never retried: a resubmission could execute the node twice.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return proto.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return proto.Result{}, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return proto.Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return proto.Result{}, fmt.Errorf("unsuccessful status code: %d (response body: %s)",
			resp.StatusCode, string(body))
	}

	var res proto.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return proto.Result{}, fmt.Errorf("cannot unmarshal task result: %s", err)
	}
	return res, nil
}

func (c *client) Running(ctx context.Context) ([]proto.Task, error) {
	// GET /api/v1/status/running
	url := c.baseUrl + API_ROOT + "status/running"

	var tasks []proto.Task
	err := retry.Do(ctx, statusTries, statusRetryWait,
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := c.Do(req)
			if err != nil {
				return err
			}
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unsuccessful status code: %d (response body: %s)",
					resp.StatusCode, string(body))
			}
			return json.Unmarshal(body, &tasks)
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
