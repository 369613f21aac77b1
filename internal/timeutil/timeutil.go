// Package timeutil produces the comparable point-in-time values used for
// ordering and expiry checks. Values are truncated to whole seconds so that
// stored and recomputed timestamps compare cleanly after a JSON round trip.
package timeutil

import "time"

// Clock supplies the current time. Services take a Clock so tests can pin it.
type Clock func() time.Time

// Now returns the current UTC time at second precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// NowAdd returns Now shifted forward by d.
func NowAdd(d time.Duration) time.Time {
	return Now().Add(d)
}

// NowSub returns Now shifted backward by d.
func NowSub(d time.Duration) time.Time {
	return Now().Add(-d)
}
