// Package types defines the shared vocabulary of the coordination core:
// coded errors, task/message priorities, capability sets, and the wire-level
// Message exchanged between agents.
//
// Every other package depends on types; types depends on nothing inside the
// module.
package types
