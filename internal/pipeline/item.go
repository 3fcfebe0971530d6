package pipeline

import (
	"fmt"

	"github.com/pattty847/TranscriptAI/internal/input"
)

// ItemStatus is the per-item pipeline state.
type ItemStatus string

const (
	StatusPending      ItemStatus = "pending"
	StatusDownloading  ItemStatus = "downloading"
	StatusCopying      ItemStatus = "copying"
	StatusTranscribing ItemStatus = "transcribing"
	StatusCompleted    ItemStatus = "completed"
	StatusError        ItemStatus = "error"
)

// validTransitions encodes the item state machine. StatusError is reachable
// from any non-terminal state and is handled separately.
var validTransitions = map[ItemStatus][]ItemStatus{
	StatusPending:      {StatusDownloading, StatusCopying, StatusTranscribing, StatusCompleted},
	StatusDownloading:  {StatusTranscribing, StatusCompleted},
	StatusCopying:      {StatusTranscribing, StatusCompleted},
	StatusTranscribing: {StatusCompleted},
	StatusCompleted:    {},
	StatusError:        {},
}

// Terminal reports whether no further transitions are possible.
func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	if next == StatusError {
		return !s.Terminal()
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WorkItem is one unit of work moving through the pipeline. Mutated only by
// the orchestrator; returned to the caller as the batch result, at which
// point ownership of any produced files passes to the caller.
type WorkItem struct {
	Source         string     `json:"source"`
	Kind           input.Kind `json:"kind"`
	NeedsDownload  bool       `json:"needs_download"`
	Status         ItemStatus `json:"status"`
	MediaPath      string     `json:"media_path,omitempty"`
	TranscriptPath string     `json:"transcript_path,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`

	// ownsMedia marks media the pipeline produced (downloaded or copied)
	// and may therefore delete; never set for in-place local files.
	ownsMedia bool
}

func newWorkItem(source string, kind input.Kind) *WorkItem {
	return &WorkItem{
		Source:        source,
		Kind:          kind,
		NeedsDownload: kind == input.KindURL,
		Status:        StatusPending,
	}
}

// transition moves the item to next, enforcing the state machine. An illegal
// transition is a programming fault, not an item failure.
func (w *WorkItem) transition(next ItemStatus) error {
	if !w.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid status transition %s -> %s for %s", w.Status, next, w.Source)
	}
	w.Status = next
	return nil
}

// fail marks the item terminally failed with a user-facing message.
func (w *WorkItem) fail(msg string) {
	w.Status = StatusError
	w.ErrorMessage = msg
}
