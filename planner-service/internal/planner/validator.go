package planner

import (
	"fmt"
	"time"

	"ganita-server/shared/models"
)

// Limits — конфигурируемые пределы валидатора.
type Limits struct {
	DefaultStepDuration time.Duration // длительность шага без явного duration
	MaxTotalDuration    time.Duration // потолок суммарной длительности сцены
}

// Validate — чистая функция проверки плана против уравнений намерения.
// Нарушения собираются, а не обрываются на первом: один проход
// возвращает полную диагностику. Валидатор один и тот же для обоих
// источников плана; путь fallback от проверки не освобождён.
func Validate(plan models.ScenePlan, equations []models.Equation, limits Limits) models.ValidationResult {
	var violations []models.Violation

	if len(plan.Steps) == 0 {
		violations = append(violations, models.Violation{
			Rule:      models.RuleNonEmpty,
			StepIndex: -1,
			Message:   "план не содержит ни одного шага",
		})
		return models.ValidationResult{Valid: false, Violations: violations}
	}

	violations = append(violations, checkOrderSequence(plan.Steps)...)

	totalDuration := 0.0
	for i, step := range plan.Steps {
		if !models.IsValidStepKind(step.Kind) {
			violations = append(violations, models.Violation{
				Rule:      models.RuleStepKind,
				StepIndex: i,
				Message:   fmt.Sprintf("неизвестный kind %q", step.Kind),
			})
			continue
		}

		violations = append(violations, checkReferences(i, step, equations)...)

		if d, ok := step.FloatParam(models.ParamDuration); ok && d > 0 {
			totalDuration += d
		} else {
			totalDuration += limits.DefaultStepDuration.Seconds()
		}
	}

	if ceiling := limits.MaxTotalDuration.Seconds(); totalDuration > ceiling {
		violations = append(violations, models.Violation{
			Rule:      models.RuleDurationCeiling,
			StepIndex: -1,
			Message:   fmt.Sprintf("суммарная длительность %.1fs превышает потолок %.1fs", totalDuration, ceiling),
		})
	}

	return models.ValidationResult{Valid: len(violations) == 0, Violations: violations}
}

// checkOrderSequence проверяет, что значения order уникальны, непрерывны
// и начинаются с нуля.
func checkOrderSequence(steps []models.Step) []models.Violation {
	var violations []models.Violation
	seen := make(map[int]bool, len(steps))
	for i, step := range steps {
		switch {
		case step.Order < 0 || step.Order >= len(steps):
			violations = append(violations, models.Violation{
				Rule:      models.RuleOrderSequence,
				StepIndex: i,
				Message:   fmt.Sprintf("order %d вне диапазона [0, %d)", step.Order, len(steps)),
			})
		case seen[step.Order]:
			violations = append(violations, models.Violation{
				Rule:      models.RuleOrderSequence,
				StepIndex: i,
				Message:   fmt.Sprintf("order %d повторяется", step.Order),
			})
		default:
			seen[step.Order] = true
		}
	}
	return violations
}

// checkReferences проверяет ссылки шага на уравнения и слагаемые.
func checkReferences(idx int, step models.Step, equations []models.Equation) []models.Violation {
	var violations []models.Violation

	needsEquation := step.Kind == models.StepShowEquation ||
		step.Kind == models.StepHighlightTerm ||
		step.Kind == models.StepTransformEquation ||
		step.Kind == models.StepPlotGraph
	if !needsEquation {
		return nil
	}

	eqIdx, ok := step.IntParam(models.ParamEquation)
	if !ok || eqIdx < 0 || eqIdx >= len(equations) {
		violations = append(violations, models.Violation{
			Rule:      models.RuleEquationRef,
			StepIndex: idx,
			Message:   fmt.Sprintf("ссылка на уравнение не разрешается (equations: %d)", len(equations)),
		})
		// Без валидного исходного уравнения проверять term/target нечем
		return violations
	}

	switch step.Kind {
	case models.StepTransformEquation:
		target, ok := step.IntParam(models.ParamTarget)
		if !ok || target < 0 || target >= len(equations) || target == eqIdx {
			violations = append(violations, models.Violation{
				Rule:      models.RuleTransformArgs,
				StepIndex: idx,
				Message:   "transform_equation требует два различных валидных индекса уравнений",
			})
		}
	case models.StepHighlightTerm:
		term, ok := step.IntParam(models.ParamTerm)
		if !ok || term < 0 || term >= len(equations[eqIdx].Terms) {
			violations = append(violations, models.Violation{
				Rule:      models.RuleTermBounds,
				StepIndex: idx,
				Message:   fmt.Sprintf("индекс слагаемого вне границ (terms: %d)", len(equations[eqIdx].Terms)),
			})
		}
	}

	return violations
}
