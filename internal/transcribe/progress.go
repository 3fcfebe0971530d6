package transcribe

import (
	"fmt"
	"sync"
	"time"
)

// Progress is one synthesized transcription progress snapshot.
type Progress struct {
	Stage   string  `json:"stage"` // loading, processing, saving
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Sink receives progress snapshots.
type Sink func(Progress)

const (
	// Inference typically takes two to three times the audio duration;
	// estimate against a conservative 2.5x.
	inferenceRatio = 2.5
	knownCap       = 95.0
	unknownCap     = 90.0
	unknownStep    = 2.0
	emitThreshold  = 0.5
	pollInterval   = 500 * time.Millisecond
)

// estimatePercent computes synthesized progress. With a known duration the
// estimate is elapsed time against 2.5x the audio length, capped at 95.
// With an unknown duration it is a fixed step per poll, capped at 90.
func estimatePercent(elapsed, duration float64, tick int) float64 {
	if duration > 0 {
		estimated := elapsed / (duration * inferenceRatio) * 100
		if estimated > knownCap {
			return knownCap
		}
		return estimated
	}
	estimated := float64(tick) * unknownStep
	if estimated > unknownCap {
		return unknownCap
	}
	return estimated
}

// startEstimator runs the progress ticker alongside a blocking inference
// call. The inference is atomic and unobservable mid-flight, so progress is
// synthesized from elapsed time. The returned stop function cancels the
// ticker and joins it; it must be called on both success and failure paths.
func startEstimator(duration float64, name string, sink Sink) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup

	if sink == nil {
		return func() {}
	}

	start := time.Now()
	wg.Add(1)
	go func() {
		defer wg.Done()
		var lastEmitted float64
		tick := 0
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				tick++
				elapsed := time.Since(start).Seconds()
				percent := estimatePercent(elapsed, duration, tick)
				if percent-lastEmitted < emitThreshold {
					continue
				}
				lastEmitted = percent
				msg := fmt.Sprintf("Transcribing %s... %.1f%%", name, percent)
				if duration <= 0 {
					msg = fmt.Sprintf("Transcribing %s... (%ds elapsed)", name, int(elapsed))
				}
				sink(Progress{Stage: "processing", Percent: percent, Message: msg})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
