package hermes

import "strings"

const (
	SubjectMashupQueuedAll = "topsis.mashup.*.queued"

	StreamName     = "TOPSIS_EVENTS"
	StreamSubjects = "topsis.>"
	StreamMaxAge   = "720h" // 30 days
)

func SubjectRunCompleted(runID string) string { return "topsis.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "topsis.run." + runID + ".failed" }
func SubjectRunDelivered(runID string) string { return "topsis.run." + runID + ".delivered" }

func SubjectMashupQueued(jobID string) string    { return "topsis.mashup." + jobID + ".queued" }
func SubjectMashupStarted(jobID string) string   { return "topsis.mashup." + jobID + ".started" }
func SubjectMashupCompleted(jobID string) string { return "topsis.mashup." + jobID + ".completed" }
func SubjectMashupFailed(jobID string) string    { return "topsis.mashup." + jobID + ".failed" }

// EntityID extracts the id token from a subject like "topsis.mashup.<id>.queued".
func EntityID(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) < 4 {
		return ""
	}
	return parts[2]
}
