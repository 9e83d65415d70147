package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used by the query pipeline.
const (
	// PromptModeration is the classifier system instruction.
	// It has no placeholders.
	PromptModeration = "moderation"

	// PromptGeneration is the answer generator system instruction.
	// Placeholders: {assistant_name} and {context}.
	PromptGeneration = "generation"
)
