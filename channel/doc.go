// Package channel delivers messages between named agents.
//
// Three channel kinds share one contract: Send enqueues for delivery and
// never blocks the sender; Receive dequeues the next message addressed to an
// agent in priority order, FIFO within a priority tier.
//
//   - Direct delivers only to the exact recipient.
//   - Broadcast delivers a copy to every agent active at send time.
//   - Topic delivers to every agent subscribed to the message topic.
//
// Delivery is fire-and-forget: sending to a recipient that never receives is
// not an error, the message simply sits in its mailbox until drained. This is
// a deliberate simplification, not a guaranteed-delivery system.
package channel
