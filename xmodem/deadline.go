package xmodem

import "time"

// deadline is a single-shot countdown bounding one wait for the peer.
// A fresh deadline is started for every distinct wait.
type deadline struct {
	at time.Time
}

func startDeadline(d time.Duration) deadline {
	return deadline{at: time.Now().Add(d)}
}

func (d deadline) expired() bool {
	return !time.Now().Before(d.at)
}
