package utils

import "time"

// MsToDuration converts a millisecond count as written in config files.
func MsToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
