package planner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganita-server/planner-service/internal/parser"
	"ganita-server/planner-service/internal/planner"
	"ganita-server/shared/models"
)

var testLimits = planner.Limits{
	DefaultStepDuration: 3 * time.Second,
	MaxTotalDuration:    5 * time.Minute,
}

func mustParse(t *testing.T, raw string) models.Equation {
	t.Helper()
	eq, err := parser.Parse(raw)
	require.NoError(t, err)
	return eq
}

func TestValidate_KnownGoodPlan(t *testing.T) {
	equations := []models.Equation{mustParse(t, "2x+3=7")}
	plan := models.ScenePlan{
		Topic: "linear",
		Steps: []models.Step{
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 0}},
			{Order: 1, Kind: models.StepHighlightTerm, Params: map[string]interface{}{"equation": 0, "term": 0}},
			{Order: 2, Kind: models.StepHighlightTerm, Params: map[string]interface{}{"equation": 0, "term": 1}},
			{Order: 3, Kind: models.StepPlotGraph, Params: map[string]interface{}{"equation": 0}},
			{Order: 4, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "done"}},
		},
	}

	result := planner.Validate(plan, equations, testLimits)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Violations)
}

func TestValidate_EmptyPlan(t *testing.T) {
	result := planner.Validate(models.ScenePlan{}, nil, testLimits)

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.RuleNonEmpty, result.Violations[0].Rule)
	assert.Equal(t, -1, result.Violations[0].StepIndex)
}

func TestValidate_EquationRefOutOfRange(t *testing.T) {
	equations := []models.Equation{mustParse(t, "2x+3=7")}
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 3}},
		},
	}

	result := planner.Validate(plan, equations, testLimits)

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.RuleEquationRef, result.Violations[0].Rule)
	assert.Equal(t, 0, result.Violations[0].StepIndex)
}

func TestValidate_OrderSequence(t *testing.T) {
	equations := []models.Equation{mustParse(t, "2x+3=7")}

	t.Run("duplicate order", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: 0, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "a"}},
				{Order: 0, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "b"}},
			},
		}
		result := planner.Validate(plan, equations, testLimits)
		assert.False(t, result.Valid)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.RuleOrderSequence, result.Violations[0].Rule)
	})

	t.Run("not zero based", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: 1, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "a"}},
				{Order: 2, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "b"}},
			},
		}
		result := planner.Validate(plan, equations, testLimits)
		assert.False(t, result.Valid)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.RuleOrderSequence, result.Violations[0].Rule)
	})

	t.Run("negative order", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: -1, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "a"}},
			},
		}
		result := planner.Validate(plan, equations, testLimits)
		assert.False(t, result.Valid)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.RuleOrderSequence, result.Violations[0].Rule)
	})
}

func TestValidate_UnknownStepKind(t *testing.T) {
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: "explode", Params: map[string]interface{}{}},
		},
	}

	result := planner.Validate(plan, nil, testLimits)

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.RuleStepKind, result.Violations[0].Rule)
}

func TestValidate_TransformArgs(t *testing.T) {
	equations := []models.Equation{mustParse(t, "d/dx x^2"), mustParse(t, "2x+1=0")}

	t.Run("same source and target", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: 0, Kind: models.StepTransformEquation, Params: map[string]interface{}{"equation": 0, "target": 0}},
			},
		}
		result := planner.Validate(plan, equations, testLimits)
		assert.False(t, result.Valid)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.RuleTransformArgs, result.Violations[0].Rule)
	})

	t.Run("distinct valid indices", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: 0, Kind: models.StepTransformEquation, Params: map[string]interface{}{"equation": 0, "target": 1}},
			},
		}
		result := planner.Validate(plan, equations, testLimits)
		assert.True(t, result.Valid)
	})
}

func TestValidate_TermBounds(t *testing.T) {
	equations := []models.Equation{mustParse(t, "2x+3=7")} // два слагаемых
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepHighlightTerm, Params: map[string]interface{}{"equation": 0, "term": 5}},
		},
	}

	result := planner.Validate(plan, equations, testLimits)

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.RuleTermBounds, result.Violations[0].Rule)
}

func TestValidate_DurationCeiling(t *testing.T) {
	limits := planner.Limits{
		DefaultStepDuration: 3 * time.Second,
		MaxTotalDuration:    10 * time.Second,
	}
	// Пять шагов по умолчанию дают 15s против потолка 10s
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "a"}},
			{Order: 1, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "b"}},
			{Order: 2, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "c"}},
			{Order: 3, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "d"}},
			{Order: 4, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "e"}},
		},
	}

	result := planner.Validate(plan, nil, limits)

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.RuleDurationCeiling, result.Violations[0].Rule)
	assert.Equal(t, -1, result.Violations[0].StepIndex)
}

// Нарушения собираются все сразу, без короткого замыкания.
func TestValidate_CollectsAllViolations(t *testing.T) {
	equations := []models.Equation{mustParse(t, "2x+3=7")}
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: "explode", Params: map[string]interface{}{}},
			{Order: 1, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 9}},
			{Order: 1, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "x"}},
		},
	}

	result := planner.Validate(plan, equations, testLimits)

	assert.False(t, result.Valid)
	rules := make([]models.ViolationRule, 0, len(result.Violations))
	for _, v := range result.Violations {
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, models.RuleStepKind)
	assert.Contains(t, rules, models.RuleEquationRef)
	assert.Contains(t, rules, models.RuleOrderSequence)
}

// JSON-декодер отдаёт индексы как float64; валидатор принимает оба
// представления, но дробное значение индексом не считается.
func TestValidate_Float64Indices(t *testing.T) {
	equations := []models.Equation{mustParse(t, "2x+3=7")}

	t.Run("whole float accepted", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": float64(0)}},
			},
		}
		assert.True(t, planner.Validate(plan, equations, testLimits).Valid)
	})

	t.Run("fractional float rejected", func(t *testing.T) {
		plan := models.ScenePlan{
			Steps: []models.Step{
				{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 0.5}},
			},
		}
		result := planner.Validate(plan, equations, testLimits)
		assert.False(t, result.Valid)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, models.RuleEquationRef, result.Violations[0].Rule)
	})
}
