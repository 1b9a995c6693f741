package adapter

import (
	"testing"
	"time"
)

func TestDelay_NeverShort(t *testing.T) {
	for _, d := range []time.Duration{
		50 * time.Microsecond,
		480 * time.Microsecond,
		2 * time.Millisecond,
	} {
		start := time.Now()
		delay(d)
		if elapsed := time.Since(start); elapsed < d {
			t.Errorf("delay(%v) returned after %v", d, elapsed)
		}
	}
}

func TestDelay_NonPositive(t *testing.T) {
	start := time.Now()
	delay(0)
	delay(-time.Millisecond)
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("non-positive delays took %v", elapsed)
	}
}
