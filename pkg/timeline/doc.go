// Package timeline provides the primitive queries and mutations over a
// session's schedule: ordering, shifting a suffix of items, elapsed time under
// pause/resume, and the "what is active at second T" lookups.
//
// None of these functions lock anything. Callers must hold the owning
// session's lock (see package state) for the whole read or mutation.
package timeline
