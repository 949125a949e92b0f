package driven

// Prompt names used by the answer pipeline.
const (
	// PromptAnswer is the grounding prompt wrapping retrieved context and
	// the user's question.
	PromptAnswer = "answer"
)

// PromptStore loads prompt templates for answer generation.
// Implementations typically read user-editable files with embedded
// defaults as fallback.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads.
	Reload()
}
