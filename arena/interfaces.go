// arena/interfaces.go
package arena

import (
	"context"

	"github.com/wfunc/tabooarena/inference"
)

// CompletionStreamer is the narrow gateway contract the turn loop depends on.
// Defined here so tests can substitute a scripted double for the HTTP client.
type CompletionStreamer interface {
	StreamCompletion(ctx context.Context, req inference.CompletionRequest, onDelta func(string)) (string, error)
}
