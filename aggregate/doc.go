// Package aggregate contains the replay and mutation engine of go-replay.
//
// An Aggregate Root state is never stored directly: it is the left-fold of
// the Domain Events applied to it, either replayed from the Event Log
// (see LoadFromHistory and RehydrateFromEvents) or freshly recorded by a
// domain operation (see RecordThat).
//
// Both paths go through the very same apply step, so replaying a sequence of
// events yields the same state and version as producing that sequence live.
// The only difference is that recorded events are also buffered as
// uncommitted changes, until the caller appends them to the Event Log and
// marks them as committed.
package aggregate
