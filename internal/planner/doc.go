// Package planner compiles declarative mutation steps into validated,
// conflict-free plans.
//
// Compilation is phase 1 of the pipeline: every step's target is resolved
// against one pre-mutation snapshot, cardinality rules are enforced, and
// overlapping targets from different steps are rejected before any mutation
// occurs. A rejected plan therefore always leaves the document untouched,
// and retrying the identical plan against an unchanged snapshot compiles to
// the identical result.
//
// Key responsibilities:
//   - Validate plan shape (step count, unique ids, registered ops)
//   - Resolve selector and reference targets with snapshot text and style
//   - Enforce cardinality rules (first / exactlyOne / all)
//   - Cap total resolved targets across the plan
//   - Detect cross-step range overlaps within blocks
package planner
