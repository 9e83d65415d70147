package driven

import (
	"time"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// MetricsRecorder receives operational measurements from the core services.
// A nil recorder is valid in every service and records nothing.
type MetricsRecorder interface {
	// IndexRebuilt records a completed rebuild and the number of chunks indexed.
	IndexRebuilt(chunks int, elapsed time.Duration)

	// IndexReused records an EnsureIndex call that kept the existing collection.
	IndexReused()

	// StageCompleted records one pipeline stage run.
	StageCompleted(stage domain.Stage, elapsed time.Duration, err error)

	// QueryFinished records the terminal stage of a query.
	QueryFinished(terminal domain.Stage)
}
