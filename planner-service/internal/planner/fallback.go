package planner

import (
	"fmt"

	"ganita-server/shared/models"
)

// FallbackEngine — детерминированный шаблонный путь построения плана.
// Никаких внешних вызовов, никакой случайности и зависимости от часов:
// одинаковое намерение всегда даёт байтово-идентичный план. Это то, что
// делает fallback проверяемым и пригодным для аудита.
type FallbackEngine struct{}

func NewFallbackEngine() *FallbackEngine {
	return &FallbackEngine{}
}

// Build синтезирует план по доминирующему классу уравнений намерения.
// Худший случай (ни уравнений, ни прозы) — вырожденный план из одного
// narrate-шага; он тоже обязан проходить валидатор.
func (f *FallbackEngine) Build(intent models.SceneIntent) models.ScenePlan {
	var steps []models.Step

	// Заголовок и определение — только когда есть прозаический контекст;
	// чисто формульный запрос открывается сразу с уравнения
	prose := proseFragments(intent)
	consumed := 0
	if len(prose) > 0 && intent.Topic != "" {
		steps = append(steps, narrateStep(intent.Topic))
		// Тема часто выводится из первого же фрагмента; не дублируем его
		if prose[0] != intent.Topic {
			steps = append(steps, narrateStep(prose[0]))
		}
		consumed = 1
	}

	if len(intent.Equations) == 0 {
		for _, text := range prose[consumed:] {
			steps = append(steps, narrateStep(text))
		}
	} else {
		class, eqIdx := dominantClass(intent.Equations)
		steps = append(steps, f.classTemplate(class, eqIdx, intent)...)
	}

	if len(steps) == 0 {
		// Анимировать нечего совсем; об этом и рассказываем
		steps = append(steps, narrateStep("No animatable mathematical content was found in the request."))
	}

	for i := range steps {
		steps[i].Order = i
	}

	return models.ScenePlan{
		Topic:      intent.Topic,
		Provenance: models.ProvenanceFallback,
		Steps:      steps,
	}
}

// classTemplate возвращает шаблон шагов для доминирующего класса.
// eqIdx — индекс первого уравнения этого класса.
func (f *FallbackEngine) classTemplate(class models.EquationClass, eqIdx int, intent models.SceneIntent) []models.Step {
	eq := intent.Equations[eqIdx]

	switch class {
	case models.EquationLinear:
		steps := []models.Step{showEquationStep(eqIdx)}
		if slope, ok := termWithDegree(eq, 1); ok {
			steps = append(steps, highlightTermStep(eqIdx, slope))
		}
		if intercept, ok := termWithDegree(eq, 0); ok {
			steps = append(steps, highlightTermStep(eqIdx, intercept))
		}
		steps = append(steps,
			plotGraphStep(eqIdx, eq),
			narrateStep(fmt.Sprintf("The linear equation %s describes a straight line.", eq.Normalized)),
		)
		return steps

	case models.EquationPolynomial:
		steps := []models.Step{showEquationStep(eqIdx)}
		if leading, ok := leadingTerm(eq); ok {
			steps = append(steps, highlightTermStep(eqIdx, leading))
		}
		steps = append(steps,
			plotGraphStep(eqIdx, eq),
			narrateStep(fmt.Sprintf("The polynomial %s has degree %d.", eq.Normalized, eq.Degree)),
		)
		return steps

	case models.EquationTrigonometric:
		return []models.Step{
			showEquationStep(eqIdx),
			plotGraphStep(eqIdx, eq),
			narrateStep(fmt.Sprintf("The trigonometric expression %s is periodic.", eq.Normalized)),
		}

	case models.EquationDerivative, models.EquationIntegral:
		verb := "derivative"
		if class == models.EquationIntegral {
			verb = "integral"
		}
		steps := []models.Step{showEquationStep(eqIdx)}
		// Преобразование требует двух различных уравнений; без второго
		// шаблон вырождается в показ и рассказ
		if target, ok := otherEquation(intent.Equations, eqIdx); ok {
			steps = append(steps, models.Step{
				Kind: models.StepTransformEquation,
				Params: map[string]interface{}{
					models.ParamEquation: eqIdx,
					models.ParamTarget:   target,
				},
			})
		}
		steps = append(steps, narrateStep(fmt.Sprintf("The %s of %s captures its rate of change.", verb, eq.Normalized)))
		return steps

	case models.EquationSystem:
		var steps []models.Step
		for i, e := range intent.Equations {
			if e.Class == models.EquationSystem {
				steps = append(steps, showEquationStep(i))
			}
		}
		steps = append(steps,
			plotGraphStep(eqIdx, eq),
			narrateStep("The system is solved where the equations hold simultaneously."),
		)
		return steps

	default: // unknown
		return []models.Step{
			showEquationStep(eqIdx),
			narrateStep(fmt.Sprintf("Consider the expression %s.", eq.Normalized)),
		}
	}
}

// --- Конструкторы шагов ---

func showEquationStep(eqIdx int) models.Step {
	return models.Step{
		Kind:   models.StepShowEquation,
		Params: map[string]interface{}{models.ParamEquation: eqIdx},
	}
}

func highlightTermStep(eqIdx, termIdx int) models.Step {
	return models.Step{
		Kind: models.StepHighlightTerm,
		Params: map[string]interface{}{
			models.ParamEquation: eqIdx,
			models.ParamTerm:     termIdx,
		},
	}
}

func plotGraphStep(eqIdx int, eq models.Equation) models.Step {
	variable := "x"
	if len(eq.Variables) > 0 {
		variable = eq.Variables[0]
	}
	return models.Step{
		Kind: models.StepPlotGraph,
		Params: map[string]interface{}{
			models.ParamEquation: eqIdx,
			models.ParamLabel:    variable,
		},
	}
}

func narrateStep(text string) models.Step {
	return models.Step{
		Kind:   models.StepNarrate,
		Params: map[string]interface{}{models.ParamText: text},
	}
}

// --- Вспомогательные выборки ---

// dominantClass возвращает самый частый класс уравнений и индекс его
// первого вхождения. Ничья разрешается более ранним вхождением.
func dominantClass(equations []models.Equation) (models.EquationClass, int) {
	counts := map[models.EquationClass]int{}
	firstIdx := map[models.EquationClass]int{}
	for i, eq := range equations {
		if _, seen := firstIdx[eq.Class]; !seen {
			firstIdx[eq.Class] = i
		}
		counts[eq.Class]++
	}

	best := equations[0].Class
	for class, n := range counts {
		switch {
		case n > counts[best]:
			best = class
		case n == counts[best] && firstIdx[class] < firstIdx[best]:
			best = class
		}
	}
	return best, firstIdx[best]
}

// termWithDegree возвращает индекс первого слагаемого заданной степени.
func termWithDegree(eq models.Equation, degree int) (int, bool) {
	for i, t := range eq.Terms {
		if t.Degree == degree {
			return i, true
		}
	}
	return 0, false
}

// leadingTerm возвращает индекс слагаемого максимальной степени.
func leadingTerm(eq models.Equation) (int, bool) {
	if len(eq.Terms) == 0 {
		return 0, false
	}
	best := 0
	for i, t := range eq.Terms {
		if t.Degree > eq.Terms[best].Degree {
			best = i
		}
	}
	return best, true
}

// otherEquation возвращает индекс любого другого уравнения, если оно есть.
func otherEquation(equations []models.Equation, except int) (int, bool) {
	for i := range equations {
		if i != except {
			return i, true
		}
	}
	return 0, false
}

// proseFragments возвращает тексты фрагментов, не привязанных к уравнениям.
func proseFragments(intent models.SceneIntent) []string {
	var out []string
	for _, frag := range intent.Narrative {
		if frag.EquationIndex == nil {
			out = append(out, frag.Text)
		}
	}
	return out
}
