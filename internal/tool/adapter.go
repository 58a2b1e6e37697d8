package tool

import (
	"context"
	"errors"
)

// Adapter-layer errors.
var (
	// ErrUnknownTool indicates a tool id with no registry binding.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrSpawnDenied indicates the tool subprocess could not be
	// started for permission reasons.
	ErrSpawnDenied = errors.New("tool subprocess spawn denied")
)

// Adapter wraps one external analysis tool.
//
// Execute returns the tool's Result; the error return is reserved for
// infrastructure failures (spawn denial, context cancellation). A tool
// that ran and failed reports that through Result.Success.
type Adapter interface {
	// Name returns the tool id this adapter serves.
	Name() string

	// Dimension returns the validation category of the tool.
	Dimension() Dimension

	// Critical reports whether a failure of this tool ends the run.
	Critical() bool

	// Initialize prepares the adapter. Called once, before any
	// Execute.
	Initialize(ctx context.Context) error

	// Execute runs the tool against the given file scope. An empty
	// scope means the whole workspace.
	Execute(ctx context.Context, files []string) (*Result, error)
}

// Cleaner is implemented by adapters holding resources that outlive a
// single Execute. The manager calls Cleanup when the cache is cleared.
type Cleaner interface {
	Cleanup() error
}
