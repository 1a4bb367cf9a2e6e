package models

import (
	"encoding/json"
	"math"
)

// StepKind — вид одного шага анимации.
type StepKind string

const (
	StepShowEquation      StepKind = "show_equation"
	StepHighlightTerm     StepKind = "highlight_term"
	StepTransformEquation StepKind = "transform_equation"
	StepPlotGraph         StepKind = "plot_graph"
	StepNarrate           StepKind = "narrate"
	StepPause             StepKind = "pause"
)

// IsValidStepKind проверяет, входит ли kind в перечисление схемы.
func IsValidStepKind(k StepKind) bool {
	switch k {
	case StepShowEquation, StepHighlightTerm, StepTransformEquation,
		StepPlotGraph, StepNarrate, StepPause:
		return true
	default:
		return false
	}
}

// Имена параметров шага. Это контракт схемы (см. промпт генератора),
// поэтому константы, а не разбросанные строки.
const (
	ParamEquation = "equation" // int: индекс уравнения в SceneIntent
	ParamTarget   = "target"   // int: индекс целевого уравнения для transform_equation
	ParamTerm     = "term"     // int: индекс слагаемого для highlight_term
	ParamDuration = "duration" // float: длительность шага в секундах
	ParamText     = "text"     // string: текст для narrate
	ParamLabel    = "label"    // string: подпись подсвечиваемого слагаемого
)

// Step — одна инструкция анимации. Поле Order задаёт порядок:
// валидные планы нумеруют шаги уникально и непрерывно с нуля.
type Step struct {
	Order  int                    `json:"order"`
	Kind   StepKind               `json:"kind"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// IntParam возвращает целочисленный параметр шага.
// JSON-декодер отдаёт числа как float64, поэтому принимаем оба
// представления; дробное значение — это не индекс, ok=false.
func (s *Step) IntParam(name string) (int, bool) {
	v, exists := s.Params[name]
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// FloatParam возвращает числовой параметр шага.
func (s *Step) FloatParam(name string) (float64, bool) {
	v, exists := s.Params[name]
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// StringParam возвращает строковый параметр шага.
func (s *Step) StringParam(name string) (string, bool) {
	v, exists := s.Params[name]
	if !exists {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// PlanProvenance — происхождение плана: сгенерирован AI или собран
// детерминированным fallback-движком.
type PlanProvenance string

const (
	ProvenanceGenerated PlanProvenance = "generated"
	ProvenanceFallback  PlanProvenance = "fallback"
)

// ScenePlan — упорядоченная последовательность шагов анимации.
// Инварианты (проверяются валидатором, а не конструктором):
//   - каждый equation/target индексирует SceneIntent.Equations;
//   - значения Order уникальны и непрерывны, начиная с 0.
type ScenePlan struct {
	Topic      string         `json:"topic"`
	Provenance PlanProvenance `json:"provenance"`
	Steps      []Step         `json:"steps"`
}

// ViolationRule — идентификатор правила валидации.
type ViolationRule string

const (
	RuleOrderSequence   ViolationRule = "order_sequence"   // Order неуникален/разрывен/не с нуля
	RuleEquationRef     ViolationRule = "equation_ref"     // индекс уравнения вне диапазона
	RuleTransformArgs   ViolationRule = "transform_args"   // transform без двух различных индексов
	RuleTermBounds      ViolationRule = "term_bounds"      // индекс слагаемого вне разобранной структуры
	RuleNonEmpty        ViolationRule = "non_empty"        // пустой план
	RuleDurationCeiling ViolationRule = "duration_ceiling" // суммарная длительность выше потолка
	RuleStepKind        ViolationRule = "step_kind"        // kind вне перечисления
)

// Violation — одно нарушение правила. StepIndex = -1, если нарушение
// относится к плану в целом, а не к конкретному шагу.
type Violation struct {
	Rule      ViolationRule `json:"rule"`
	StepIndex int           `json:"stepIndex"`
	Message   string        `json:"message"`
}

// ValidationResult — итог одного прохода валидатора.
// Нарушения собираются все сразу, без короткого замыкания.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}
