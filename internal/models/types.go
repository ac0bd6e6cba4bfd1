package models

import "strings"

// RemoteObject identifies one downloadable unit as reported by the
// bucket listing. Size is the authoritative total byte length used to
// detect completion.
type RemoteObject struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
}

// IsDirMarker reports whether the object is a directory marker
// (a zero-payload key ending in "/").
func (o RemoteObject) IsDirMarker() bool {
	return strings.HasSuffix(o.Key, "/")
}

// IgnoreRules holds the configured bucket ignore patterns. Empty rules
// include everything.
type IgnoreRules struct {
	StartsWith []string `mapstructure:"starts_with" json:"starts_with,omitempty"`
	EndsWith   []string `mapstructure:"ends_with" json:"ends_with,omitempty"`
	Contains   []string `mapstructure:"contains" json:"contains,omitempty"`
}

// Outcome is the result of one transfer attempt for a single object.
type Outcome int

const (
	// OutcomeCompleted means the local file length equals the remote size.
	OutcomeCompleted Outcome = iota
	// OutcomeRetry means the transfer was interrupted mid-stream; the
	// bytes written so far are durable and a re-invocation will resume
	// from the new offset.
	OutcomeRetry
	// OutcomeFailed is terminal for the object.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}
