// Copyright 2026, Met Office

// Package config loads YAML config files: process config for the runner and
// worker binaries, and pipeline description files (nodes + edges) that the
// engine builds graphs from.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Runner is the config for the pprun binary.
type Runner struct {
	// Backend selects the execution strategy: "sequential", "parallel", or
	// "distributed".
	Backend string `yaml:"backend"`

	// Workers bounds concurrency for the parallel backend.
	Workers int `yaml:"workers"`

	// WorkerURL is the base URL of the worker service used by the
	// distributed backend (ex: "http://127.0.0.1:9250").
	WorkerURL string `yaml:"worker_url"`

	// Verbose enables the per-invocation observability hook.
	Verbose bool `yaml:"verbose"`
}

// Worker is the config for the ppworker binary.
type Worker struct {
	// The address the worker API will listen on (ex: "127.0.0.1:9250").
	ListenAddress string `yaml:"listen_address"`
}

// Defaults returns a Runner config with the default backend.
func Defaults() Runner {
	return Runner{
		Backend: "sequential",
		Workers: 4,
	}
}

// Load reads the YAML file at path into v.
func Load(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config file %s: %s", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cannot parse config file %s: %s", path, err)
	}
	return nil
}
