package engine

import (
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planner"
)

// ApplyRequest asks the engine to compile and commit a plan against a
// document.
type ApplyRequest struct {
	Doc   *document.Document
	Steps []planner.Step
}

// PreviewRequest asks the engine to evaluate a plan without committing.
type PreviewRequest struct {
	Doc   *document.Document
	Steps []planner.Step
}
