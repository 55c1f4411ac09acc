// Copyright 2026, Met Office

package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/MetOffice/pp-systems-framework/proto"
)

var (
	ErrTaskRunner = errors.New("forced error in task runner")
)

// TaskRunner is a mock distributed task-execution facility.
type TaskRunner struct {
	RunTaskFunc func(ctx context.Context, task proto.Task) (proto.Result, error)
	// --
	tasks []proto.Task
	*sync.Mutex
}

func NewTaskRunner() *TaskRunner {
	return &TaskRunner{Mutex: &sync.Mutex{}}
}

func (r *TaskRunner) RunTask(ctx context.Context, task proto.Task) (proto.Result, error) {
	r.Lock()
	r.tasks = append(r.tasks, task)
	r.Unlock()
	if r.RunTaskFunc != nil {
		return r.RunTaskFunc(ctx, task)
	}
	return proto.Result{Key: task.Key, State: proto.STATE_COMPLETE}, nil
}

// Tasks returns every submitted task, in submission order.
func (r *TaskRunner) Tasks() []proto.Task {
	r.Lock()
	defer r.Unlock()
	tasks := make([]proto.Task, len(r.tasks))
	copy(tasks, r.tasks)
	return tasks
}
