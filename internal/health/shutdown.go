package health

import "sync/atomic"

// shuttingDown flips once the process starts draining; readiness reports 503
// from then on so load balancers stop routing new traffic.
var shuttingDown atomic.Bool

// SetReady toggles the readiness gate. Pass false when shutdown begins.
func SetReady(ready bool) {
	shuttingDown.Store(!ready)
}

// Ready reports whether the process accepts new traffic.
func Ready() bool {
	return !shuttingDown.Load()
}
