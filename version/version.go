// Package version contains the types used to position Domain Events,
// both inside a single Event Stream and inside the whole Event Log.
package version

import "strconv"

// Version is the position of an Aggregate Root, or an Event Stream,
// expressed as the zero-based index of the last Domain Event applied to it.
//
// A Version only ever moves forward, by exactly one for each Domain Event.
type Version int64

// Unborn is the Version of an Aggregate Root, or Event Stream,
// that has not seen any Domain Event yet.
const Unborn Version = -1

// Next returns the Version that follows the current one.
func (v Version) Next() Version { return v + 1 }

// IsUnborn reports whether no Domain Event has been applied yet.
func (v Version) IsUnborn() bool { return v <= Unborn }

func (v Version) String() string { return strconv.FormatInt(int64(v), 10) }

// SequenceNumber is the global, 1-based position of a Domain Event
// in the Event Log, assigned in append order.
type SequenceNumber uint64

// SelectFromBeginning is a Selector value that will return all Domain Events in an Event Stream.
var SelectFromBeginning = Selector{From: 0}

// Selector specifies which slice of the Event Stream to select when streaming Domain Events
// from the Event Log.
type Selector struct {
	From Version
}
