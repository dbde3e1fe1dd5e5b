package domain

import "github.com/jonboulle/clockwork"

// clock stamps Snapshot.LoadedAt so tests can freeze load times via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for snapshots. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
