package domain

// Sentinel answers returned instead of a generated answer under a policy outcome.
const (
	// ModerationSentinel is returned when the classifier denies a query.
	ModerationSentinel = "Sorry, I cannot help with that."

	// NoInformationSentinel is returned when retrieval finds nothing
	// or the model produced an empty answer.
	NoInformationSentinel = "Sorry, I could not find any information on that."
)

// DefaultTopK is the number of passages retrieved when nothing is configured.
const DefaultTopK = 5

// Stage identifies a state of the query pipeline.
type Stage string

// Pipeline stages.
const (
	// StageModerate classifies the raw query.
	StageModerate Stage = "moderate"

	// StageRetrieve searches the vector index.
	StageRetrieve Stage = "retrieve"

	// StageGenerate produces the grounded answer.
	StageGenerate Stage = "generate"

	// StageBlocked is terminal: moderation denied the query.
	StageBlocked Stage = "blocked"

	// StageDone is terminal: an answer (or the no-information sentinel) is ready.
	StageDone Stage = "done"
)

// IsTerminal returns true if no further stage runs after this one.
func (s Stage) IsTerminal() bool {
	return s == StageBlocked || s == StageDone
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// QueryState is the per-request record threaded through the pipeline.
// It is created fresh per query and never shared between queries.
type QueryState struct {
	Query          string
	TopK           int
	Context        string
	RetrievedCount int
	ModerationOK   bool
	Answer         string
}

// QueryUpdate is the partial result of one stage.
// Nil fields leave the corresponding QueryState field untouched.
type QueryUpdate struct {
	Context        *string
	RetrievedCount *int
	ModerationOK   *bool
	Answer         *string
}

// Merge returns a copy of s with the non-nil fields of u applied.
func (s QueryState) Merge(u QueryUpdate) QueryState {
	if u.Context != nil {
		s.Context = *u.Context
	}
	if u.RetrievedCount != nil {
		s.RetrievedCount = *u.RetrievedCount
	}
	if u.ModerationOK != nil {
		s.ModerationOK = *u.ModerationOK
	}
	if u.Answer != nil {
		s.Answer = *u.Answer
	}
	return s
}

// QueryResult is what the pipeline hands back to the caller.
type QueryResult struct {
	// State is the final query state.
	State QueryState

	// Terminal is the stage the pipeline stopped in.
	Terminal Stage
}

// Answer returns the final answer text.
func (r QueryResult) Answer() string {
	return r.State.Answer
}

// Blocked returns true if moderation denied the query.
func (r QueryResult) Blocked() bool {
	return r.Terminal == StageBlocked
}
