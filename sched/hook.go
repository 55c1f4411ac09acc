// Copyright 2026, Met Office

package sched

import (
	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/proto"
)

// A Hook observes node invocations. Hooks are purely observational: they run
// inline before and after each invocation but have no effect on scheduling.
// Implementations must be safe for concurrent use; parallel backends call
// them from multiple workers.
type Hook interface {
	// BeforeNode reports an imminent invocation: the resolved call
	// reference, the assembled positional inputs, and the static arguments.
	BeforeNode(key proto.NodeKey, ref string, inputs []interface{}, args map[string]interface{})

	// AfterNode reports the invocation's terminal result.
	AfterNode(res proto.Result)
}

type nopHook struct{}

func (nopHook) BeforeNode(proto.NodeKey, string, []interface{}, map[string]interface{}) {}
func (nopHook) AfterNode(proto.Result)                                                  {}

// NopHook returns the do-nothing hook, the default.
func NopHook() Hook { return nopHook{} }

type verboseHook struct {
	logger *log.Entry
}

// VerboseHook returns a hook that logs every invocation's inputs, call
// reference, arguments, and outcome at info level.
func VerboseHook(logger *log.Entry) Hook {
	return verboseHook{logger: logger}
}

func (h verboseHook) BeforeNode(key proto.NodeKey, ref string, inputs []interface{}, args map[string]interface{}) {
	h.logger.WithFields(log.Fields{
		"node":   key.String(),
		"call":   ref,
		"inputs": inputs,
		"args":   args,
	}).Info("invoking node")
}

func (h verboseHook) AfterNode(res proto.Result) {
	entry := h.logger.WithFields(log.Fields{
		"node":  res.Key.String(),
		"state": proto.StateName[res.State],
	})
	if res.Failed() {
		entry.WithFields(log.Fields{"error": res.Error}).Info("node finished")
		return
	}
	entry.WithFields(log.Fields{"value": res.Value}).Info("node finished")
}
