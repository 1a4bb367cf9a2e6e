package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganita-server/planner-service/internal/planner"
	"ganita-server/shared/models"
)

func linearIntent(t *testing.T) models.SceneIntent {
	t.Helper()
	eq := mustParse(t, "2x+3=7")
	idx := 0
	return models.SceneIntent{
		Equations: []models.Equation{eq},
		Narrative: []models.NarrativeFragment{{Text: "2x+3=7", EquationIndex: &idx}},
	}
}

func TestFallback_LinearTemplate(t *testing.T) {
	engine := planner.NewFallbackEngine()

	plan := engine.Build(linearIntent(t))

	assert.Equal(t, models.ProvenanceFallback, plan.Provenance)
	require.Len(t, plan.Steps, 5)

	kinds := make([]models.StepKind, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		assert.Equal(t, i, step.Order, "orders must be contiguous from zero")
		kinds = append(kinds, step.Kind)
	}
	assert.Equal(t, []models.StepKind{
		models.StepShowEquation,
		models.StepHighlightTerm,
		models.StepHighlightTerm,
		models.StepPlotGraph,
		models.StepNarrate,
	}, kinds)

	// Первая подсветка — слагаемое со степенью 1, вторая — свободный член
	slope, ok := plan.Steps[1].IntParam(models.ParamTerm)
	require.True(t, ok)
	assert.Equal(t, 0, slope)
	intercept, ok := plan.Steps[2].IntParam(models.ParamTerm)
	require.True(t, ok)
	assert.Equal(t, 1, intercept)
}

func TestFallback_ProseOnlySingleNarrate(t *testing.T) {
	engine := planner.NewFallbackEngine()
	topic := "Tell me about the history of calculus"
	intent := models.SceneIntent{
		Topic:     topic,
		Narrative: []models.NarrativeFragment{{Text: topic}},
	}

	plan := engine.Build(intent)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, models.StepNarrate, plan.Steps[0].Kind)
	text, ok := plan.Steps[0].StringParam(models.ParamText)
	require.True(t, ok)
	assert.Equal(t, topic, text)
}

func TestFallback_EmptyIntentDegeneratePlan(t *testing.T) {
	engine := planner.NewFallbackEngine()

	plan := engine.Build(models.SceneIntent{})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, models.StepNarrate, plan.Steps[0].Kind)
	assert.Equal(t, 0, plan.Steps[0].Order)
}

func TestFallback_Deterministic(t *testing.T) {
	engine := planner.NewFallbackEngine()
	intent := linearIntent(t)

	first := engine.Build(intent)
	second := engine.Build(intent)

	assert.Equal(t, first, second)
}

func TestFallback_DerivativeTransformNeedsSecondEquation(t *testing.T) {
	engine := planner.NewFallbackEngine()

	t.Run("single equation degrades to show and narrate", func(t *testing.T) {
		intent := models.SceneIntent{Equations: []models.Equation{mustParse(t, "d/dx x^2")}}
		plan := engine.Build(intent)
		for _, step := range plan.Steps {
			assert.NotEqual(t, models.StepTransformEquation, step.Kind)
		}
	})

	t.Run("second equation enables transform", func(t *testing.T) {
		intent := models.SceneIntent{Equations: []models.Equation{
			mustParse(t, "d/dx x^2"),
			mustParse(t, "2x+1=0"),
		}}
		plan := engine.Build(intent)

		var transform *models.Step
		for i := range plan.Steps {
			if plan.Steps[i].Kind == models.StepTransformEquation {
				transform = &plan.Steps[i]
			}
		}
		require.NotNil(t, transform)
		src, _ := transform.IntParam(models.ParamEquation)
		dst, _ := transform.IntParam(models.ParamTarget)
		assert.NotEqual(t, src, dst)
	})
}

// Любой план fallback обязан проходить тот же валидатор, что и
// сгенерированные планы, включая вырожденный случай.
func TestFallback_AlwaysValidates(t *testing.T) {
	engine := planner.NewFallbackEngine()

	idx := 0
	intents := map[string]models.SceneIntent{
		"linear":     linearIntent(t),
		"polynomial": {Equations: []models.Equation{mustParse(t, "x^2+2x+1=0")}},
		"trig":       {Equations: []models.Equation{mustParse(t, "sin(x)+cos(x)")}},
		"derivative": {Equations: []models.Equation{mustParse(t, "d/dx x^2")}},
		"integral":   {Equations: []models.Equation{mustParse(t, "int(x^2)")}},
		"system":     {Equations: []models.Equation{mustParse(t, "x+y=2;x-y=0")}},
		"unknown":    {Equations: []models.Equation{mustParse(t, "2+2=4")}},
		"two classes": {Equations: []models.Equation{
			mustParse(t, "d/dx x^2"),
			mustParse(t, "2x+1=0"),
		}},
		"prose with topic": {
			Topic:     "Limits",
			Narrative: []models.NarrativeFragment{{Text: "What is a limit"}},
		},
		"prose and equation": {
			Topic:     "Lines",
			Equations: []models.Equation{mustParse(t, "y=2x+1")},
			Narrative: []models.NarrativeFragment{
				{Text: "Plot this line"},
				{Text: "y=2x+1", EquationIndex: &idx},
			},
		},
		"empty": {},
	}

	for name, intent := range intents {
		t.Run(name, func(t *testing.T) {
			plan := engine.Build(intent)
			result := planner.Validate(plan, intent.Equations, testLimits)
			assert.True(t, result.Valid, "violations: %+v", result.Violations)
		})
	}
}

func TestFallback_TopicHeaderOnlyWithProse(t *testing.T) {
	engine := planner.NewFallbackEngine()

	t.Run("formula only request opens with the equation", func(t *testing.T) {
		intent := linearIntent(t)
		intent.Topic = "Linear equations"
		// Единственный фрагмент привязан к уравнению, прозы нет
		plan := engine.Build(intent)
		assert.Equal(t, models.StepShowEquation, plan.Steps[0].Kind)
	})

	t.Run("prose request opens with the topic", func(t *testing.T) {
		idx := 0
		intent := models.SceneIntent{
			Topic:     "Slope of a line",
			Equations: []models.Equation{mustParse(t, "y=2x+1")},
			Narrative: []models.NarrativeFragment{
				{Text: "Explain the slope"},
				{Text: "y=2x+1", EquationIndex: &idx},
			},
		}
		plan := engine.Build(intent)
		require.NotEmpty(t, plan.Steps)
		assert.Equal(t, models.StepNarrate, plan.Steps[0].Kind)
		text, _ := plan.Steps[0].StringParam(models.ParamText)
		assert.Equal(t, "Slope of a line", text)
	})
}
