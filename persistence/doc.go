// Package persistence provides durable storage for coordination snapshots.
//
// The coordination core keeps agents and tasks in memory; deployments that
// want durability across restarts save a Snapshot through a SnapshotStore
// and restore it on startup. Three backends are supported: memory for
// development and testing, file for single-node deployments, and redis for
// deployments that share state between a coordinator and its supervisor.
package persistence
