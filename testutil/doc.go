// Package testutil provides a scripted worker agent for exercising
// coordination protocols in tests. Workers drain a channel mailbox and
// answer task assignments and bid queries according to their configuration.
package testutil
