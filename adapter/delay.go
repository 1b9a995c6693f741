// Package adapter provides onewire.Pin implementations over the GPIO
// backends the project supports: Linux GPIO character devices, periph.io
// pins and gobot digital pins. All of them run on hosted kernels, so the
// timing caveats from the bitbang package apply; the shared delay helper
// below keeps slot shaping as tight as user space allows.
package adapter

import "time"

// sleepSlack is the window kept away from time.Sleep: a scheduler wake-up
// alone routinely costs tens of microseconds on a hosted kernel, so the
// final stretch of every delay is spun on the monotonic clock instead.
const sleepSlack = 100 * time.Microsecond

func delay(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d > sleepSlack {
		time.Sleep(d - sleepSlack)
	}
	for time.Now().Before(deadline) {
	}
}
