// Package compiler понижает валидированный план сцены в плоскую
// последовательность примитивных команд, не зависящих от рендерера.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ganita-server/shared/models"
)

// Compiler выполняет понижение плана. Отбраковка планов — работа
// валидатора; сюда попадают только уже проверенные планы, и компиляция
// над ними тотальна. Ошибка отсюда означает дефект в пайплайне выше и
// наружу уходит как ErrCompile, без повторов.
type Compiler struct {
	defaultStepDuration time.Duration
}

func New(defaultStepDuration time.Duration) *Compiler {
	return &Compiler{defaultStepDuration: defaultStepDuration}
}

// Compile понижает план в CompiledScene. Простые шаги дают одну команду;
// transform_equation разворачивается в fade_out → morph → fade_in, чтобы
// словарь примитивов оставался маленьким и однородным.
func (c *Compiler) Compile(plan models.ScenePlan, equations []models.Equation) (models.CompiledScene, error) {
	steps := orderedSteps(plan.Steps)

	var commands []models.Command
	for _, step := range steps {
		cmds, err := c.lower(step, equations)
		if err != nil {
			return models.CompiledScene{}, err
		}
		commands = append(commands, cmds...)
	}

	fingerprint, err := Fingerprint(plan)
	if err != nil {
		return models.CompiledScene{}, err
	}

	return models.CompiledScene{
		Fingerprint: fingerprint,
		Topic:       plan.Topic,
		Commands:    commands,
	}, nil
}

// lower переводит один шаг в команды. Все ссылки разрешаются здесь:
// в командах индексов уже нет.
func (c *Compiler) lower(step models.Step, equations []models.Equation) ([]models.Command, error) {
	duration := c.defaultStepDuration.Seconds()
	if d, ok := step.FloatParam(models.ParamDuration); ok && d > 0 {
		duration = d
	}

	switch step.Kind {
	case models.StepShowEquation:
		eq, err := resolveEquation(step, models.ParamEquation, equations)
		if err != nil {
			return nil, err
		}
		return []models.Command{{Op: models.OpShowEquation, Payload: eq.Normalized, Duration: duration}}, nil

	case models.StepHighlightTerm:
		eq, err := resolveEquation(step, models.ParamEquation, equations)
		if err != nil {
			return nil, err
		}
		termIdx, ok := step.IntParam(models.ParamTerm)
		if !ok || termIdx < 0 || termIdx >= len(eq.Terms) {
			return nil, fmt.Errorf("%w: индекс слагаемого не разрешается в %q", models.ErrCompile, eq.Normalized)
		}
		return []models.Command{{
			Op:       models.OpHighlight,
			Payload:  eq.Terms[termIdx].Text,
			Target:   eq.Normalized,
			Duration: duration,
		}}, nil

	case models.StepTransformEquation:
		src, err := resolveEquation(step, models.ParamEquation, equations)
		if err != nil {
			return nil, err
		}
		dst, err := resolveEquation(step, models.ParamTarget, equations)
		if err != nil {
			return nil, err
		}
		// Длительность шага делится между тремя фазами
		phase := duration / 3
		return []models.Command{
			{Op: models.OpFadeOut, Payload: src.Normalized, Duration: phase},
			{Op: models.OpMorph, Payload: dst.Normalized, Target: src.Normalized, Duration: phase},
			{Op: models.OpFadeIn, Payload: dst.Normalized, Duration: phase},
		}, nil

	case models.StepPlotGraph:
		eq, err := resolveEquation(step, models.ParamEquation, equations)
		if err != nil {
			return nil, err
		}
		variable := "x"
		if len(eq.Variables) > 0 {
			variable = eq.Variables[0]
		}
		return []models.Command{{
			Op:       models.OpPlot,
			Payload:  eq.Normalized,
			Variable: variable,
			Duration: duration,
		}}, nil

	case models.StepNarrate:
		text, _ := step.StringParam(models.ParamText)
		return []models.Command{{Op: models.OpCaption, Payload: text, Duration: duration}}, nil

	case models.StepPause:
		return []models.Command{{Op: models.OpWait, Duration: duration}}, nil

	default:
		return nil, fmt.Errorf("%w: неизвестный kind %q", models.ErrCompile, step.Kind)
	}
}

func resolveEquation(step models.Step, param string, equations []models.Equation) (models.Equation, error) {
	idx, ok := step.IntParam(param)
	if !ok || idx < 0 || idx >= len(equations) {
		return models.Equation{}, fmt.Errorf("%w: ссылка %q не разрешается", models.ErrCompile, param)
	}
	return equations[idx], nil
}

// Wire-форма шага для фингерпринта: только kind, params и order.
// Provenance не участвует намеренно — совпавшие планы генеративного и
// fallback путей делят одну запись кэша.
type fingerprintStep struct {
	Order  int                    `json:"order"`
	Kind   models.StepKind        `json:"kind"`
	Params map[string]interface{} `json:"params"`
}

// Fingerprint — стабильный SHA-256 от упорядоченной последовательности
// шагов. json.Marshal сортирует ключи map, поэтому сериализация
// детерминирована.
func Fingerprint(plan models.ScenePlan) (string, error) {
	steps := orderedSteps(plan.Steps)

	h := sha256.New()
	for _, step := range steps {
		data, err := json.Marshal(fingerprintStep{
			Order:  step.Order,
			Kind:   step.Kind,
			Params: step.Params,
		})
		if err != nil {
			return "", fmt.Errorf("%w: сериализация шага: %v", models.ErrCompile, err)
		}
		h.Write(data)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// orderedSteps возвращает копию шагов, отсортированную по order.
func orderedSteps(steps []models.Step) []models.Step {
	out := make([]models.Step, len(steps))
	copy(out, steps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
