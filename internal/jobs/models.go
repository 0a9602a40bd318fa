package jobs

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is a known lifecycle state.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether the job will not change state again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one transcript generation request and its outcome.
type Job struct {
	ID              string
	SourceURL       string
	EpisodeTitle    string
	PodcastName     string
	Status          Status
	Provider        string
	TranscriptChars int64
	AudioSizeBytes  int64
	FailureCategory string
	ErrorMessage    string
	CreatedAt       string
	UpdatedAt       string
	CompletedAt     string
}
