package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Sleeper is the blocking delay primitive used for settle and backoff waits.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc adapts a function to Sleeper.
type SleepFunc func(d time.Duration)

func (f SleepFunc) Sleep(d time.Duration) { f(d) }

// Real sleeps on the wall clock.
var Real Sleeper = SleepFunc(time.Sleep)

// Recorder is a Sleeper that returns immediately and remembers each request.
type Recorder struct {
	Calls []time.Duration
}

func (r *Recorder) Sleep(d time.Duration) { r.Calls = append(r.Calls, d) }

// Total sums all recorded delays.
func (r *Recorder) Total() time.Duration {
	var t time.Duration
	for _, d := range r.Calls {
		t += d
	}
	return t
}
