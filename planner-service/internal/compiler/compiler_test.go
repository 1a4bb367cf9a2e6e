package compiler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganita-server/planner-service/internal/compiler"
	"ganita-server/planner-service/internal/parser"
	"ganita-server/shared/models"
)

func mustParse(t *testing.T, raw string) models.Equation {
	t.Helper()
	eq, err := parser.Parse(raw)
	require.NoError(t, err)
	return eq
}

func linearPlan(provenance models.PlanProvenance) models.ScenePlan {
	return models.ScenePlan{
		Topic:      "Linear equations",
		Provenance: provenance,
		Steps: []models.Step{
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 0}},
			{Order: 1, Kind: models.StepHighlightTerm, Params: map[string]interface{}{"equation": 0, "term": 0}},
			{Order: 2, Kind: models.StepPlotGraph, Params: map[string]interface{}{"equation": 0}},
			{Order: 3, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "A straight line."}},
		},
	}
}

func TestCompile_LinearPlan(t *testing.T) {
	comp := compiler.New(3 * time.Second)
	equations := []models.Equation{mustParse(t, "2x+3=7")}

	scene, err := comp.Compile(linearPlan(models.ProvenanceFallback), equations)

	require.NoError(t, err)
	assert.NotEmpty(t, scene.Fingerprint)
	assert.Equal(t, "Linear equations", scene.Topic)
	require.Len(t, scene.Commands, 4)

	assert.Equal(t, models.OpShowEquation, scene.Commands[0].Op)
	assert.Equal(t, "2x+3=7", scene.Commands[0].Payload)

	// Подсветка несёт текст слагаемого и целевое уравнение
	assert.Equal(t, models.OpHighlight, scene.Commands[1].Op)
	assert.Equal(t, "2x", scene.Commands[1].Payload)
	assert.Equal(t, "2x+3=7", scene.Commands[1].Target)

	assert.Equal(t, models.OpPlot, scene.Commands[2].Op)
	assert.Equal(t, "x", scene.Commands[2].Variable)

	assert.Equal(t, models.OpCaption, scene.Commands[3].Op)
	assert.Equal(t, "A straight line.", scene.Commands[3].Payload)

	assert.InDelta(t, 12.0, scene.TotalDuration(), 0.001)
}

func TestCompile_TransformExpandsToThreeCommands(t *testing.T) {
	comp := compiler.New(3 * time.Second)
	equations := []models.Equation{mustParse(t, "d/dx x^2"), mustParse(t, "2x+1=0")}
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepTransformEquation, Params: map[string]interface{}{
				"equation": 0,
				"target":   1,
				"duration": 6.0,
			}},
		},
	}

	scene, err := comp.Compile(plan, equations)

	require.NoError(t, err)
	require.Len(t, scene.Commands, 3)
	assert.Equal(t, models.OpFadeOut, scene.Commands[0].Op)
	assert.Equal(t, models.OpMorph, scene.Commands[1].Op)
	assert.Equal(t, models.OpFadeIn, scene.Commands[2].Op)
	// Длительность шага делится между фазами поровну
	for _, cmd := range scene.Commands {
		assert.InDelta(t, 2.0, cmd.Duration, 0.001)
	}
	assert.Equal(t, equations[1].Normalized, scene.Commands[1].Payload)
	assert.Equal(t, equations[0].Normalized, scene.Commands[1].Target)
}

func TestCompile_StepsLoweredInOrder(t *testing.T) {
	comp := compiler.New(time.Second)
	equations := []models.Equation{mustParse(t, "2x+3=7")}
	// Шаги заданы не по порядку; компилятор понижает их по полю order
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 1, Kind: models.StepNarrate, Params: map[string]interface{}{"text": "second"}},
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 0}},
		},
	}

	scene, err := comp.Compile(plan, equations)

	require.NoError(t, err)
	require.Len(t, scene.Commands, 2)
	assert.Equal(t, models.OpShowEquation, scene.Commands[0].Op)
	assert.Equal(t, models.OpCaption, scene.Commands[1].Op)
}

func TestCompile_UnresolvableReference(t *testing.T) {
	comp := compiler.New(time.Second)
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 7}},
		},
	}

	_, err := comp.Compile(plan, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCompile)
}

func TestFingerprint_Deterministic(t *testing.T) {
	plan := linearPlan(models.ProvenanceGenerated)

	first, err := compiler.Fingerprint(plan)
	require.NoError(t, err)
	second, err := compiler.Fingerprint(plan)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex SHA-256
}

// Источник плана не участвует в отпечатке: совпавшие планы генеративного
// и fallback путей делят одну запись кэша.
func TestFingerprint_ProvenanceIndependent(t *testing.T) {
	generated, err := compiler.Fingerprint(linearPlan(models.ProvenanceGenerated))
	require.NoError(t, err)
	fallback, err := compiler.Fingerprint(linearPlan(models.ProvenanceFallback))
	require.NoError(t, err)

	assert.Equal(t, generated, fallback)
}

// JSON-декодер отдаёт числа как float64, fallback строит их как int;
// отпечаток обязан совпадать, иначе идентичные планы не делят кэш.
func TestFingerprint_IntAndFloatParamsAgree(t *testing.T) {
	intPlan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": 0}},
		},
	}
	floatPlan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepShowEquation, Params: map[string]interface{}{"equation": float64(0)}},
		},
	}

	a, err := compiler.Fingerprint(intPlan)
	require.NoError(t, err)
	b, err := compiler.Fingerprint(floatPlan)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	base := linearPlan(models.ProvenanceFallback)

	changedText := linearPlan(models.ProvenanceFallback)
	changedText.Steps[3].Params = map[string]interface{}{"text": "A different caption."}

	reordered := linearPlan(models.ProvenanceFallback)
	reordered.Steps[0].Order = 3
	reordered.Steps[3].Order = 0

	baseFP, err := compiler.Fingerprint(base)
	require.NoError(t, err)
	textFP, err := compiler.Fingerprint(changedText)
	require.NoError(t, err)
	orderFP, err := compiler.Fingerprint(reordered)
	require.NoError(t, err)

	assert.NotEqual(t, baseFP, textFP)
	assert.NotEqual(t, baseFP, orderFP)
}

func TestCompile_PlotDefaultsVariable(t *testing.T) {
	comp := compiler.New(time.Second)
	// Уравнение без свободных переменных
	equations := []models.Equation{mustParse(t, "2+2=4")}
	plan := models.ScenePlan{
		Steps: []models.Step{
			{Order: 0, Kind: models.StepPlotGraph, Params: map[string]interface{}{"equation": 0}},
		},
	}

	scene, err := comp.Compile(plan, equations)

	require.NoError(t, err)
	require.Len(t, scene.Commands, 1)
	assert.Equal(t, "x", scene.Commands[0].Variable)
}
