package hermes

import "time"

type RunCompletedEvent struct {
	RunID        string    `json:"run_id"`
	Source       string    `json:"source"`
	Alternatives int       `json:"alternatives"`
	Criteria     int       `json:"criteria"`
	Best         []string  `json:"best"`
	Timestamp    time.Time `json:"timestamp"`
}

type RunFailedEvent struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type RunDeliveredEvent struct {
	RunID     string `json:"run_id"`
	Recipient string `json:"recipient"`
}

type MashupQueuedEvent struct {
	JobID    string `json:"job_id"`
	Singer   string `json:"singer"`
	Videos   int    `json:"videos"`
	Duration int    `json:"duration_seconds"`
}

type MashupStartedEvent struct {
	JobID string `json:"job_id"`
}

type MashupCompletedEvent struct {
	JobID     string `json:"job_id"`
	Clips     int    `json:"clips"`
	SizeBytes int64  `json:"size_bytes"`
	OutputMs  int64  `json:"output_ms"`
	URL       string `json:"url,omitempty"`
}

type MashupFailedEvent struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}
