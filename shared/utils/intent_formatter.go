package utils

import (
	"fmt"
	"strings"

	"ganita-server/shared/models"
)

// FormatIntentForPlanner форматирует SceneIntent во входные данные для
// промпта планировщика сцены. Формат детерминирован: одинаковый intent
// всегда даёт байт-в-байт одинаковую строку, поэтому промпт (а значит и
// ключи кэша выше по конвейеру) воспроизводим.
func FormatIntentForPlanner(intent models.SceneIntent) string {
	var sb strings.Builder

	sb.WriteString("Topic:\n")
	sb.WriteString(intent.Topic)
	sb.WriteString("\n")

	if len(intent.Equations) > 0 {
		sb.WriteString("\nEquations:\n")
		for i, eq := range intent.Equations {
			fmt.Fprintf(&sb, "  [%d] %s (class: %s, variables: %s)\n",
				i, eq.Normalized, eq.Class, strings.Join(eq.Variables, ", "))
		}
	}

	if len(intent.Narrative) > 0 {
		sb.WriteString("\nNarrative:\n")
		for _, frag := range intent.Narrative {
			if frag.EquationIndex != nil {
				fmt.Fprintf(&sb, "  (about equation %d) %s\n", *frag.EquationIndex, frag.Text)
			} else {
				fmt.Fprintf(&sb, "  %s\n", frag.Text)
			}
		}
	}

	return strings.TrimSpace(sb.String())
}
