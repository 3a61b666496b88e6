package workflow

import (
	"strconv"
	"strings"

	"github.com/quillflow/quillflow/engine/prompt"
)

// -----------------------------------------------------------------------------
// Decisions
// -----------------------------------------------------------------------------

type DecisionKind string

const (
	DecisionContinue DecisionKind = "continue"
	DecisionJump     DecisionKind = "jump"
	DecisionEnd      DecisionKind = "end"
)

// Decision is the explicit outcome of an evaluation step, consumed by the
// orchestrator loop to pick the next step index.
type Decision struct {
	Kind   DecisionKind
	Target int
}

func Continue() Decision       { return Decision{Kind: DecisionContinue} }
func Jump(target int) Decision { return Decision{Kind: DecisionJump, Target: target} }
func End() Decision            { return Decision{Kind: DecisionEnd} }

// Evaluate runs an evaluation step's conditions against the current
// variables, first match wins. A matching condition with a jump target
// requests a jump; the request is honored only while the step's jump counter
// is below the bound, after which the default action applies regardless of
// condition outcome.
func Evaluate(step *Step, ctx *Context) Decision {
	eval := step.Evaluation
	jumpsExhausted := ctx.JumpCounts[step.ID] >= eval.JumpBound()

	if !jumpsExhausted {
		for i := range eval.Conditions {
			cond := &eval.Conditions[i]
			if !matches(cond, ctx.Variables[cond.Variable]) {
				continue
			}
			if cond.TargetStepIndex == nil {
				return Continue()
			}
			ctx.JumpCounts[step.ID]++
			return Jump(*cond.TargetStepIndex)
		}
	}
	if eval.DefaultAction == DefaultEnd {
		return End()
	}
	return Continue()
}

// -----------------------------------------------------------------------------
// Operators
// -----------------------------------------------------------------------------

func matches(cond *Condition, value any) bool {
	switch cond.Operator {
	case OpEquals:
		return looselyEqual(value, cond.Value)
	case OpNotEquals:
		return !looselyEqual(value, cond.Value)
	case OpGreaterThan:
		left, right, ok := numericPair(value, cond.Value)
		return ok && left > right
	case OpLessThan:
		left, right, ok := numericPair(value, cond.Value)
		return ok && left < right
	case OpContains:
		return contains(value, cond.Value)
	case OpNotContains:
		return !contains(value, cond.Value)
	default:
		return false
	}
}

// looselyEqual compares after coercing both sides to a shared primitive form:
// numbers compare numerically, everything else compares by string rendition.
func looselyEqual(a, b any) bool {
	if left, right, ok := numericPair(a, b); ok {
		return left == right
	}
	return prompt.Stringify(a) == prompt.Stringify(b)
}

// numericPair coerces both operands to float64, reporting false when either
// side is non-numeric. Comparison operators fail closed on that.
func numericPair(a, b any) (float64, float64, bool) {
	left, ok := toNumber(a)
	if !ok {
		return 0, 0, false
	}
	right, ok := toNumber(b)
	if !ok {
		return 0, 0, false
	}
	return left, right, true
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// contains is substring match for strings and membership for arrays.
func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, prompt.Stringify(needle))
	case []string:
		for _, elem := range h {
			if looselyEqual(elem, needle) {
				return true
			}
		}
		return false
	case []any:
		for _, elem := range h {
			if looselyEqual(elem, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
