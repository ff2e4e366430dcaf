// Package scheduling implements the deferred-reminder protocol at the
// heart of Doorwatch: schedule-on-receive, cancel-by-match, and
// fire-and-reschedule.
//
// Three components share the wire types and the Queue abstraction:
//
//   - Scheduler turns an inbound door event into a ScheduledEvent with a
//     scheduled-visibility delay on the shared event queue.
//   - CancelService places short-lived CancelSignals on per-door cancel
//     queues.
//   - Processor runs once per visible ScheduledEvent and either consumes
//     a waiting cancel signal (terminating the chain) or fires the
//     announcement and schedules the next link.
//
// Within one chain the links are strictly sequential: each reschedule
// happens only after the current firing's cancel check resolves. Across
// chains there is no mutual exclusion per door; concurrent chains for
// the same door compete for its cancel queue, first receive wins.
//
// Two wire shapes are parsed for backward compatibility; see
// ParseScheduledEvent.
package scheduling
