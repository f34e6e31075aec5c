package engine

import (
	"encoding/json"

	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

// Effect reports whether a step changed the document.
type Effect string

// Step effects.
const (
	EffectChanged Effect = "changed"
	EffectNoop    Effect = "noop"
)

// ExecContext carries the shared transaction and engine services into an
// executor. Compiled targets hold snapshot positions; executors map them
// through the transaction before touching text.
type ExecContext struct {
	Tx       *document.Transaction
	NewID    func() string
	Registry *Registry
}

// Executor applies one step to one resolved target inside the shared
// transaction. It returns the effect and optional step-specific data for
// the receipt.
type Executor func(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error)

// CommandFunc runs one registered domain command against a target.
type CommandFunc func(ec *ExecContext, step planner.Step, target planner.CompiledTarget, params json.RawMessage) (Effect, map[string]any, error)

// commandEntry is one registered domain command. Commands that operate on
// a resolved target must be given a where clause by the plan.
type commandEntry struct {
	fn          CommandFunc
	needsTarget bool
}

// Registry maps step operations to executors and domain command names to
// their implementations. It satisfies planner.RegistryView so the compiler
// can reject unknown ops before any execution.
type Registry struct {
	executors map[planner.Op]Executor
	commands  map[string]commandEntry
}

// NewRegistry returns a registry with every built-in operation and domain
// command registered.
func NewRegistry() *Registry {
	r := &Registry{
		executors: make(map[planner.Op]Executor),
		commands:  make(map[string]commandEntry),
	}
	r.RegisterExecutor(planner.OpTextRewrite, execTextRewrite)
	r.RegisterExecutor(planner.OpTextInsert, execTextInsert)
	r.RegisterExecutor(planner.OpTextDelete, execTextDelete)
	r.RegisterExecutor(planner.OpFormatApply, execFormatApply)
	r.RegisterExecutor(planner.OpCreateParagraph, execCreateParagraph)
	r.RegisterExecutor(planner.OpCreateHeading, execCreateHeading)
	r.RegisterExecutor(planner.OpDomainCommand, execDomainCommand)
	r.RegisterCommand("block.delete", true, cmdBlockDelete)
	r.RegisterCommand("block.setType", true, cmdBlockSetType)
	return r
}

// RegisterExecutor binds an executor to an op, replacing any existing one.
func (r *Registry) RegisterExecutor(op planner.Op, ex Executor) {
	r.executors[op] = ex
}

// RegisterCommand binds a domain command implementation to a name.
// needsTarget marks commands that operate on a resolved target; plans may
// omit the where clause only for commands registered without it.
func (r *Registry) RegisterCommand(name string, needsTarget bool, fn CommandFunc) {
	r.commands[name] = commandEntry{fn: fn, needsTarget: needsTarget}
}

// HasExecutor reports whether op has a registered executor.
func (r *Registry) HasExecutor(op planner.Op) bool {
	_, ok := r.executors[op]
	return ok
}

// HasCommand reports whether a domain command name is registered.
func (r *Registry) HasCommand(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// CommandNeedsTarget reports whether a domain command operates on a
// resolved target. Unknown commands report true; HasCommand gates them
// before this is consulted.
func (r *Registry) CommandNeedsTarget(name string) bool {
	entry, ok := r.commands[name]
	if !ok {
		return true
	}
	return entry.needsTarget
}

func (r *Registry) executor(op planner.Op) (Executor, error) {
	ex, ok := r.executors[op]
	if !ok {
		return nil, planerr.Newf(planerr.CodeInternal, "op %q passed compilation without an executor", op)
	}
	return ex, nil
}

func (r *Registry) command(name string) (CommandFunc, error) {
	entry, ok := r.commands[name]
	if !ok {
		return nil, planerr.Newf(planerr.CodeInternal, "command %q passed compilation without an implementation", name)
	}
	return entry.fn, nil
}
