package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dhowell/redline/internal/clock"
	"github.com/dhowell/redline/internal/config"
	"github.com/dhowell/redline/internal/docfile"
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/engine"
	"github.com/dhowell/redline/internal/fsops"
	"github.com/dhowell/redline/internal/hash"
	"github.com/dhowell/redline/internal/planner"
)

// newEngine creates a new engine with real implementations of all
// dependencies, honoring the --config flag for limits.
func newEngine() (*engine.Engine, config.Limits, error) {
	fs := fsops.NewRealFS()
	limits, err := loadLimits(fs)
	if err != nil {
		return nil, config.Limits{}, err
	}
	eng := engine.New(engine.NewRegistry(), limits, clock.NewRealClock(), document.NewRegexSearcher())
	return eng, limits, nil
}

// loadLimits reads the limits config named by --config, or defaults when
// the flag is unset.
func loadLimits(fs fsops.FS) (config.Limits, error) {
	if configPath == "" {
		return config.DefaultLimits(), nil
	}
	limits, err := config.LoadLimits(fs, configPath)
	if err != nil {
		return config.Limits{}, fmt.Errorf("failed to load limits config: %w", err)
	}
	return limits, nil
}

// loadDocument reads a YAML document file.
func loadDocument(path string) (*document.Document, error) {
	return docfile.Load(fsops.NewRealFS(), hash.NewSHA256Hasher(), path)
}

// saveDocument writes a document back to its file.
func saveDocument(doc *document.Document, path string) error {
	return docfile.Save(fsops.NewRealFS(), doc, path)
}

// loadPlan reads a plan file: a JSON array of mutation steps.
func loadPlan(path string) ([]planner.Step, error) {
	data, err := fsops.NewRealFS().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	steps, err := planner.ParseSteps(data)
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
