package uploader

import "github.com/rs/zerolog/log"

// Progress is one completion notification. Notifications arrive in real-time
// completion order, which may differ from the input order of the final
// outcome sequence.
type Progress struct {
	Completed int
	Total     int
	Outcome   Outcome
}

// ProgressSink receives completion notifications. The orchestrator calls it
// from a single goroutine, so implementations need no locking; they own
// display or forwarding, nothing else.
type ProgressSink interface {
	Report(p Progress)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(p Progress)

// Report implements ProgressSink.
func (f ProgressFunc) Report(p Progress) { f(p) }

// LogSink is a ProgressSink that logs each completion.
func LogSink() ProgressSink {
	return ProgressFunc(func(p Progress) {
		log.Info().
			Int("completed", p.Completed).
			Int("total", p.Total).
			Str("source", p.Outcome.SourcePath).
			Bool("success", p.Outcome.Success).
			Msg("Upload progress")
	})
}
