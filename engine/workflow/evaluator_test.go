package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillflow/quillflow/engine/core"
)

func intPtr(n int) *int { return &n }

func evalStep(eval *EvaluationConfig) *Step {
	return &Step{ID: core.MustNewID(), Type: StepEvaluation, Evaluation: eval}
}

func TestMatches(t *testing.T) {
	t.Run("Should compare equals across primitive types", func(t *testing.T) {
		assert.True(t, matches(&Condition{Operator: OpEquals, Value: "yes"}, "yes"))
		assert.True(t, matches(&Condition{Operator: OpEquals, Value: 5.0}, 5))
		assert.True(t, matches(&Condition{Operator: OpEquals, Value: "5"}, 5.0))
		assert.False(t, matches(&Condition{Operator: OpEquals, Value: "no"}, "yes"))
	})
	t.Run("Should negate with not_equals", func(t *testing.T) {
		assert.True(t, matches(&Condition{Operator: OpNotEquals, Value: "no"}, "yes"))
	})
	t.Run("Should compare numerically", func(t *testing.T) {
		assert.True(t, matches(&Condition{Operator: OpGreaterThan, Value: 50.0}, 90.0))
		assert.True(t, matches(&Condition{Operator: OpLessThan, Value: 50.0}, 10.0))
		assert.True(t, matches(&Condition{Operator: OpGreaterThan, Value: 50.0}, "90"))
	})
	t.Run("Should fail closed on non-numeric comparison operands", func(t *testing.T) {
		assert.False(t, matches(&Condition{Operator: OpGreaterThan, Value: 50.0}, "high"))
		assert.False(t, matches(&Condition{Operator: OpLessThan, Value: "low"}, 10.0))
	})
	t.Run("Should substring-match strings with contains", func(t *testing.T) {
		assert.True(t, matches(&Condition{Operator: OpContains, Value: "deep"}, "knee-deep in data"))
		assert.False(t, matches(&Condition{Operator: OpContains, Value: "deep"}, "shallow"))
	})
	t.Run("Should membership-match arrays with contains", func(t *testing.T) {
		assert.True(t, matches(&Condition{Operator: OpContains, Value: "b"}, []any{"a", "b"}))
		assert.True(t, matches(&Condition{Operator: OpNotContains, Value: "z"}, []string{"a", "b"}))
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("Should take the first matching condition", func(t *testing.T) {
		step := evalStep(&EvaluationConfig{
			Conditions: []Condition{
				{Variable: "score", Operator: OpGreaterThan, Value: 100.0, TargetStepIndex: intPtr(0)},
				{Variable: "score", Operator: OpGreaterThan, Value: 50.0, TargetStepIndex: intPtr(2)},
				{Variable: "score", Operator: OpGreaterThan, Value: 10.0, TargetStepIndex: intPtr(4)},
			},
			DefaultAction: DefaultContinue,
		})
		ctx := NewContext(nil)
		ctx.Variables["score"] = 90.0
		decision := Evaluate(step, ctx)
		assert.Equal(t, Jump(2), decision)
	})
	t.Run("Should treat a match without a target as continue", func(t *testing.T) {
		step := evalStep(&EvaluationConfig{
			Conditions:    []Condition{{Variable: "done", Operator: OpEquals, Value: true}},
			DefaultAction: DefaultEnd,
		})
		ctx := NewContext(nil)
		ctx.Variables["done"] = true
		assert.Equal(t, Continue(), Evaluate(step, ctx))
	})
	t.Run("Should apply the default action when nothing matches", func(t *testing.T) {
		step := evalStep(&EvaluationConfig{
			Conditions:    []Condition{{Variable: "score", Operator: OpGreaterThan, Value: 50.0}},
			DefaultAction: DefaultEnd,
		})
		ctx := NewContext(nil)
		ctx.Variables["score"] = 10.0
		assert.Equal(t, End(), Evaluate(step, ctx))
	})
	t.Run("Should force the default action once jumps are exhausted", func(t *testing.T) {
		step := evalStep(&EvaluationConfig{
			Conditions: []Condition{
				{Variable: "score", Operator: OpGreaterThan, Value: 50.0, TargetStepIndex: intPtr(0)},
			},
			DefaultAction: DefaultEnd,
			MaximumJumps:  intPtr(2),
		})
		ctx := NewContext(nil)
		ctx.Variables["score"] = 90.0

		assert.Equal(t, Jump(0), Evaluate(step, ctx))
		assert.Equal(t, Jump(0), Evaluate(step, ctx))
		assert.Equal(t, End(), Evaluate(step, ctx))
	})
	t.Run("Should never jump with a zero bound", func(t *testing.T) {
		step := evalStep(&EvaluationConfig{
			Conditions: []Condition{
				{Variable: "score", Operator: OpGreaterThan, Value: 50.0, TargetStepIndex: intPtr(0)},
			},
			DefaultAction: DefaultContinue,
			MaximumJumps:  intPtr(0),
		})
		ctx := NewContext(nil)
		ctx.Variables["score"] = 90.0
		assert.Equal(t, Continue(), Evaluate(step, ctx))
	})
	t.Run("Should default the bound to three jumps", func(t *testing.T) {
		eval := &EvaluationConfig{}
		assert.Equal(t, DefaultMaximumJumps, eval.JumpBound())
	})
}
