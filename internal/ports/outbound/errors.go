package outbound

import "errors"

// ErrPreconditionFailed is returned by a conditional write (MealRepository.Update with a
// non-empty expectedStatus, SuggestionSessionStore.CasUpdate) when the row's current state no
// longer matches what the caller expected to find — the at-most-one-flight / optimistic-
// concurrency signal of spec.md §3.3.
var ErrPreconditionFailed = errors.New("outbound: precondition failed, row was concurrently modified")
