package driven

// PromptStore provides access to Oracle prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptSystem holds the analysis instructions and output schema.
	// This prompt has no format placeholders.
	PromptSystem = "system"

	// PromptChunkAnalysis wraps one chunk of contract text.
	// The template expects %d (index), %d (total), %s (page range) and %s (text) placeholders.
	PromptChunkAnalysis = "chunk_analysis"

	// PromptMerge asks the Oracle to consolidate partial records.
	// The template expects %d (record count) and %s (JSON array) placeholders.
	PromptMerge = "merge"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
