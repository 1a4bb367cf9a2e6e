package planner

import (
	"ganita-server/shared/models"
	"ganita-server/shared/utils"
)

// Системный промт планировщика сцен. Схема ответа повторяет wire-формат
// models.ScenePlan один в один; всё вне ```json-блока игнорируется.
const scenePlannerSystemPrompt = `You are a math animation scene planner. Given a topic, equations and narrative fragments, produce an animation plan as a single JSON object inside a ` + "```json" + ` code block.

Schema:
{
  "topic": string,
  "steps": [
    {"order": int, "kind": string, "params": {string: value}}
  ]
}

Rules:
- "order" values start at 0 and increase by exactly 1 in listing order.
- "kind" must be one of: "show_equation", "highlight_term", "transform_equation", "plot_graph", "narrate", "pause".
- "show_equation" and "plot_graph" require params.equation — a zero-based index into the given equation list.
- "highlight_term" requires params.equation and params.term — a zero-based index of a term of that equation.
- "transform_equation" requires params.equation (source index) and params.target (a different equation index).
- "narrate" requires params.text. "pause" requires params.duration in seconds.
- Optional params.duration (seconds, number) is allowed on any step.
- Reference only equations from the given list. Do not invent indices.
- Output nothing except the JSON block.`

// BuildUserInput строит пользовательскую часть промта из намерения.
// Построение детерминировано: одинаковый SceneIntent даёт одинаковый
// промт, что делает путь генерации кэшируемым на уровне бэкенда.
func BuildUserInput(intent models.SceneIntent) string {
	return utils.FormatIntentForPlanner(intent)
}
