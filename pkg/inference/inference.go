package inference

import (
	"context"
)

// Inferencer defines an interface for running model inference.
// Implementations issue exactly one request per call: no retries, no streaming.
type Inferencer interface {
	Infer(ctx context.Context, system, user string) (string, error)
}
