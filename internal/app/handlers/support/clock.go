package support

import "time"

// Now returns fn() in UTC, or the wall clock when fn is nil.
func Now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}
