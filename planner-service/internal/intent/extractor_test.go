package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ganita-server/planner-service/internal/intent"
	"ganita-server/shared/models"
)

func TestExtract_DollarSpans(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("Animate $x^2 - 4 = 0$ nicely.", "Quadratics")

	assert.Equal(t, "Quadratics", result.Topic)
	require.Len(t, result.Equations, 1)
	assert.Equal(t, "x^2-4=0", result.Equations[0].Normalized)
	assert.Equal(t, models.EquationPolynomial, result.Equations[0].Class)

	// Фрагменты идут в порядке текста: проза до спана, привязанный
	// фрагмент, проза после
	require.Len(t, result.Narrative, 3)
	assert.Nil(t, result.Narrative[0].EquationIndex)
	assert.Equal(t, "Animate", result.Narrative[0].Text)
	require.NotNil(t, result.Narrative[1].EquationIndex)
	assert.Equal(t, 0, *result.Narrative[1].EquationIndex)
	assert.Nil(t, result.Narrative[2].EquationIndex)
	assert.Equal(t, "nicely", result.Narrative[2].Text)
}

// Явно размеченный $sin(x)$ — уравнение класса trigonometric, а не
// проза, даже без внешнего оператора.
func TestExtract_TrigSpanWithoutOperator(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("Show $sin(x)$ please.", "")

	require.Len(t, result.Equations, 1)
	assert.Equal(t, "sin(x)", result.Equations[0].Normalized)
	assert.Equal(t, models.EquationTrigonometric, result.Equations[0].Class)
}

func TestExtract_UnparseableSpanDemotedToProse(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("Consider $hello$ now.", "")

	assert.Empty(t, result.Equations)
	require.Len(t, result.Narrative, 1)
	assert.Nil(t, result.Narrative[0].EquationIndex)
	assert.Contains(t, result.Narrative[0].Text, "hello")
}

func TestExtract_SentenceSegmentation(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("This is the intro. x^2 = 4! All done?", "")

	require.Len(t, result.Equations, 1)
	assert.Equal(t, "x^2=4", result.Equations[0].Normalized)

	var prose []string
	for _, frag := range result.Narrative {
		if frag.EquationIndex == nil {
			prose = append(prose, frag.Text)
		}
	}
	assert.Equal(t, []string{"This is the intro", "All done"}, prose)
}

func TestExtract_ImperativeWithEquation(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("Solve 2x + 3 = 7", "")

	require.Len(t, result.Equations, 1)
	assert.Equal(t, models.EquationLinear, result.Equations[0].Class)
	assert.Equal(t, []string{"x"}, result.Equations[0].Variables)
	// Императивная проза не прилипает к нормализованной форме
	assert.Equal(t, "2x+3=7", result.Equations[0].Normalized)
}

func TestExtract_ProseOnly(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("Tell me about the history of calculus", "")

	assert.Empty(t, result.Equations)
	require.Len(t, result.Narrative, 1)
	assert.False(t, result.IsEmpty())
	// Тема выводится из первого прозаического фрагмента
	assert.Equal(t, "Tell me about the history of calculus", result.Topic)
}

func TestExtract_EmptyInput(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	result := extractor.Extract("", "")

	assert.True(t, result.IsEmpty())
	assert.Equal(t, "", result.Topic)
}

// Порядок уравнений следует тексту независимо от механизма обнаружения:
// спаны $...$ и предложения с операторной структурой перемежаются по
// позиции, а не группируются по виду разметки.
func TestExtract_EquationOrderFollowsText(t *testing.T) {
	extractor := intent.NewExtractor(zap.NewNop())

	t.Run("two dollar spans", func(t *testing.T) {
		result := extractor.Extract("First $x + 1 = 2$ then $y^2 = 9$.", "")

		require.Len(t, result.Equations, 2)
		assert.Equal(t, "x+1=2", result.Equations[0].Normalized)
		assert.Equal(t, "y^2=9", result.Equations[1].Normalized)
	})

	t.Run("sentence equation before dollar span", func(t *testing.T) {
		result := extractor.Extract("2x+3=7. Then $y^2 = 9$.", "")

		require.Len(t, result.Equations, 2)
		assert.Equal(t, "2x+3=7", result.Equations[0].Normalized)
		assert.Equal(t, "y^2=9", result.Equations[1].Normalized)
	})

	t.Run("dollar span before sentence equation", func(t *testing.T) {
		result := extractor.Extract("$y^2 = 9$ first. Then 2x+3=7.", "")

		require.Len(t, result.Equations, 2)
		assert.Equal(t, "y^2=9", result.Equations[0].Normalized)
		assert.Equal(t, "2x+3=7", result.Equations[1].Normalized)
	})

	t.Run("narrative fragments follow text order", func(t *testing.T) {
		result := extractor.Extract("Intro. $x + 1 = 2$ outro.", "")

		require.Len(t, result.Narrative, 3)
		assert.Equal(t, "Intro", result.Narrative[0].Text)
		assert.Nil(t, result.Narrative[0].EquationIndex)
		require.NotNil(t, result.Narrative[1].EquationIndex)
		assert.Equal(t, 0, *result.Narrative[1].EquationIndex)
		assert.Equal(t, "outro", result.Narrative[2].Text)
	})
}
