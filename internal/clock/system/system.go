// Package system provides the real clock implementation.
package system

import "time"

// Clock implements archive.Clock using time.Now. Archive object names embed
// its timestamps, so it always reports UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
