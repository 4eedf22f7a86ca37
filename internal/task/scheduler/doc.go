// Package scheduler is the scheduling engine: recurrence rules and their due-time
// calculation, jobs, the insertion-ordered registry, and the polling loop.
//
// The loop is single-threaded. Each tick it reads "now" from the clock, runs every
// due job in registry order, and reschedules it from the current time. Job failures
// (errors or panics) are contained per job. Stop is cooperative and is only checked
// between ticks, so an in-flight action is never interrupted.
package scheduler
