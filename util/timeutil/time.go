package timeutil

import "time"

// Since returns the elapsed wall time from t to now.
func Since(t time.Time) time.Duration {
	return time.Now().Sub(t)
}
