package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganita-server/planner-service/internal/parser"
	"ganita-server/shared/models"
)

func TestParse_Classification(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.EquationClass
	}{
		{"linear equation", "2x + 3 = 7", models.EquationLinear},
		{"quadratic", "x^2 - 4 = 0", models.EquationPolynomial},
		{"python exponent notation", "x**2 + 2*x + 1 = 0", models.EquationPolynomial},
		{"cubic", "x^3 + x = 10", models.EquationPolynomial},
		{"derivative leibniz", "d/dx x^2", models.EquationDerivative},
		{"derivative prime", "f'(x) = 2x", models.EquationDerivative},
		{"integral keyword", "int(x^2)", models.EquationIntegral},
		{"integral symbol", "∫ x dx", models.EquationIntegral},
		{"system of equations", "x + y = 2; x - y = 0", models.EquationSystem},
		{"trig only", "sin(x) + cos(x)", models.EquationTrigonometric},
		{"trig call without operator", "sin(x)", models.EquationTrigonometric},
		{"constant expression", "2 + 2 = 4", models.EquationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq, err := parser.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, eq.Class)
		})
	}
}

// Приоритет: степень считается только вне аргументов функций, поэтому
// sin(x)+x^2 — полином, а sin(x) сам по себе — тригонометрия.
func TestParse_ClassificationPriority(t *testing.T) {
	t.Run("trig with outer polynomial term", func(t *testing.T) {
		eq, err := parser.Parse("sin(x) + x^2")
		require.NoError(t, err)
		assert.Equal(t, models.EquationPolynomial, eq.Class)
	})

	t.Run("derivative wins over polynomial", func(t *testing.T) {
		eq, err := parser.Parse("d/dx x^2 = 2x")
		require.NoError(t, err)
		assert.Equal(t, models.EquationDerivative, eq.Class)
	})

	t.Run("system wins over degree", func(t *testing.T) {
		eq, err := parser.Parse("x^2 = 4; x = 2")
		require.NoError(t, err)
		assert.Equal(t, models.EquationSystem, eq.Class)
	})
}

// Классификация — чистая функция нормализованной формы: повторный разбор
// нормализованной строки даёт тот же класс.
func TestParse_ClassificationIdempotent(t *testing.T) {
	inputs := []string{
		"2x + 3 = 7",
		"x**2 - 4 = 0",
		"sin(x) + cos(x)",
		"d/dx x^2",
		"x + y = 2; x - y = 0",
	}
	for _, input := range inputs {
		eq, err := parser.Parse(input)
		require.NoError(t, err)

		reparsed, err := parser.Parse(eq.Normalized)
		require.NoError(t, err)
		assert.Equal(t, eq.Class, reparsed.Class, "class changed on reparse of %q", eq.Normalized)
		assert.Equal(t, eq.Normalized, reparsed.Normalized, "normalization is not idempotent for %q", input)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unbalanced open paren", "sin(x + 2"},
		{"unbalanced close paren", "x + 2)"},
		{"plain prose", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrParse)
		})
	}
}

func TestParse_VariablesAndTerms(t *testing.T) {
	t.Run("linear terms with signs", func(t *testing.T) {
		eq, err := parser.Parse("2x + 3 = 7")
		require.NoError(t, err)

		assert.Equal(t, []string{"x"}, eq.Variables)
		require.Len(t, eq.Terms, 2)
		assert.Equal(t, "2x", eq.Terms[0].Text)
		assert.Equal(t, 1, eq.Terms[0].Degree)
		assert.Equal(t, "+3", eq.Terms[1].Text)
		assert.Equal(t, 0, eq.Terms[1].Degree)
	})

	t.Run("derivative variable from d/dx", func(t *testing.T) {
		eq, err := parser.Parse("d/dx x^2")
		require.NoError(t, err)
		assert.Contains(t, eq.Variables, "x")
	})

	t.Run("two variables sorted", func(t *testing.T) {
		eq, err := parser.Parse("y = 2x + 1")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, eq.Variables)
	})

	t.Run("degree of quadratic", func(t *testing.T) {
		eq, err := parser.Parse("x^2 + 2x + 1 = 0")
		require.NoError(t, err)
		assert.Equal(t, 2, eq.Degree)
		require.Len(t, eq.Terms, 3)
		assert.Equal(t, 2, eq.Terms[0].Degree)
	})

	t.Run("prose prefix trimmed from normalized form", func(t *testing.T) {
		eq, err := parser.Parse("Solve 2x + 3 = 7")
		require.NoError(t, err)
		assert.Equal(t, "2x+3=7", eq.Normalized)
		assert.Equal(t, models.EquationLinear, eq.Class)
		assert.Equal(t, []string{"x"}, eq.Variables)
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x**2 + 1", "x^2+1"},
		{"  2x + 3 = 7 ", "2x+3=7"},
		{"x² − 1", "x^2-1"},
		{"a × b ÷ c", "a*b/c"},
		// Прозаические токены по краям отбрасываются, дифференциал dx —
		// математика, а не проза
		{"Solve 2x + 3 = 7", "2x+3=7"},
		{"∫ x dx", "∫xdx"},
		{"please graph y = 2x now", "y=2x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parser.Normalize(tt.input))
	}
}
