package picks

import "time"

// Remaining is the countdown state for a group deadline.
type Remaining struct {
	// Open is true while now is strictly before the deadline.
	Open bool `json:"open"`

	// Minutes and Seconds are the floor-divided time left, both zero once
	// the deadline has passed.
	Minutes int `json:"minutesLeft"`
	Seconds int `json:"secondsLeft"`
}

// Countdown computes the open/closed status and remaining time for a
// deadline. It is pure; the caller is expected to re-invoke it at a steady
// cadence (one second or better) to keep a live display fresh.
//
// A zero deadline is treated as already expired.
func Countdown(deadline, now time.Time) Remaining {
	if deadline.IsZero() {
		return Remaining{}
	}
	left := deadline.Sub(now)
	if left <= 0 {
		return Remaining{}
	}
	return Remaining{
		Open:    true,
		Minutes: int(left / time.Minute),
		Seconds: int(left % time.Minute / time.Second),
	}
}
