// Package swarmflow provides a top-level convenience entry point for
// creating a coordinator with minimal boilerplate.
//
// Usage:
//
//	import "github.com/swarmflow/swarmflow"
//
//	c, err := swarmflow.New()
//	c, err := swarmflow.New(swarmflow.WithLogger(logger))
//	c, err := swarmflow.NewFromConfigFile("swarmflow.yaml")
//
// This is a thin wrapper around [coordinator.New]; both produce identical
// results. Use this package when you prefer the shorter import path.
package swarmflow

import (
	"github.com/swarmflow/swarmflow/config"
	"github.com/swarmflow/swarmflow/coordinator"
)

// Option configures the coordinator created by [New].
type Option = coordinator.Option

// New creates a [coordinator.Coordinator] with default configuration.
func New(opts ...Option) (*coordinator.Coordinator, error) {
	return coordinator.New(nil, opts...)
}

// NewFromConfigFile loads YAML configuration, applying SWARMFLOW_*
// environment overrides, and creates a coordinator from it.
func NewFromConfigFile(path string, opts ...Option) (*coordinator.Coordinator, error) {
	cfg, err := config.NewLoader().WithConfigPath(path).Load()
	if err != nil {
		return nil, err
	}
	return coordinator.New(cfg, opts...)
}

// Re-export coordinator options so callers never need to import coordinator/.

// WithLogger sets a custom zap logger.
var WithLogger = coordinator.WithLogger

// WithRegisterer sets the prometheus registerer metrics register on.
var WithRegisterer = coordinator.WithRegisterer

// WithSnapshotStore sets the store used by Snapshot and Restore.
var WithSnapshotStore = coordinator.WithSnapshotStore
