package timex

import (
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	var s Sleeper = &r
	s.Sleep(80 * time.Millisecond)
	s.Sleep(350 * time.Millisecond)
	if len(r.Calls) != 2 || r.Total() != 430*time.Millisecond {
		t.Fatalf("unexpected calls %v", r.Calls)
	}
}

func TestSleepFunc(t *testing.T) {
	var got time.Duration
	SleepFunc(func(d time.Duration) { got = d }).Sleep(time.Second)
	if got != time.Second {
		t.Fatalf("got %v", got)
	}
}
