package history

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one generation invocation.
type Run struct {
	ID           string
	BaseDir      string
	Status       Status
	Variations   int
	Posts        int
	Images       int
	Bytes        int64
	Seed         int64
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Duration returns the elapsed run time, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Selection is one image placed into one slot of one post.
type Selection struct {
	RunID       string
	Variation   int
	Post        int
	Slot        int
	ContentType string
	Product     string
	Image       string
	OutputPath  string
	CreatedAt   time.Time
}

// Outcome closes a run.
type Outcome struct {
	Posts  int
	Images int
	Bytes  int64
	Err    error
}

// Usage counts how often an image was selected across all runs.
type Usage struct {
	Image       string
	ContentType string
	Count       int
	LastUsed    time.Time
}
