// Package engine executes compiled mutation plans against documents.
//
// The engine is the orchestration layer between the CLI and the lower-level
// packages. It coordinates plan compilation, precondition checks, executor
// dispatch, and transaction commit.
//
// Key components:
//   - Engine: Main orchestrator called by the CLI
//   - Registry: Maps step operations to executors and domain commands
//   - Apply/Preview: Runs a plan for real, or evaluates it without committing
package engine

import (
	"github.com/google/uuid"

	"github.com/dhowell/redline/internal/clock"
	"github.com/dhowell/redline/internal/config"
	"github.com/dhowell/redline/internal/document"
)

// Engine runs mutation plans. It is the main API surface called by the CLI.
type Engine struct {
	registry *Registry
	limits   config.Limits
	clock    clock.Clock
	searcher document.Searcher
	newID    func() string
}

// New creates a new Engine with the given dependencies. A nil searcher is
// legal; plans using text selectors then fail with CAPABILITY_UNAVAILABLE.
func New(registry *Registry, limits config.Limits, clk clock.Clock, searcher document.Searcher) *Engine {
	return &Engine{
		registry: registry,
		limits:   limits,
		clock:    clk,
		searcher: searcher,
		newID:    uuid.NewString,
	}
}

// SetIDSource overrides the generator for new block ids. Tests use this to
// get stable output.
func (e *Engine) SetIDSource(fn func() string) {
	e.newID = fn
}
