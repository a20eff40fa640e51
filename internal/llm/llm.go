// Package llm defines the boundary to the external text-generation
// collaborator. The core only needs "start inference with a prompt, stream
// text, support cancellation"; everything else about the collaborator is
// out of scope.
package llm

import "context"

// Inference is the outbound contract to a text-generation collaborator.
type Inference interface {
	// Ready reports whether the collaborator can accept work right now.
	// Callers degrade gracefully when it returns false.
	Ready(ctx context.Context) bool

	// StartInference generates text for the prompt, invoking onChunk for
	// each streamed fragment as it arrives. Cancelling the context stops
	// generation.
	StartInference(ctx context.Context, prompt string, onChunk func(string)) error
}
