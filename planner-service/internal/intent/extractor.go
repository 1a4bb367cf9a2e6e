// Package intent сегментирует пользовательский текст на прозу и
// математические выражения и собирает из них models.SceneIntent.
package intent

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"ganita-server/planner-service/internal/parser"
	"ganita-server/shared/models"
)

// Выражение в $...$ — явная разметка математики.
var dollarSpanRegex = regexp.MustCompile(`\$([^$]+)\$`)

// Extractor извлекает намерение сцены из сырого текста.
// Извлечение не падает никогда: фрагменты, которые не удалось разобрать
// как уравнения, понижаются до прозы с записью в лог.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("IntentExtractor")}
}

// Extract разбирает текст запроса в SceneIntent. Кандидаты в уравнения —
// спаны $...$ и предложения с операторной структурой, в порядке
// появления в тексте: проза между спанами копится в буфер и сбрасывается
// перед каждым разобранным спаном, поэтому и уравнения, и прозаические
// фрагменты следуют тексту независимо от механизма обнаружения.
func (e *Extractor) Extract(text, topic string) models.SceneIntent {
	intent := models.SceneIntent{Topic: strings.TrimSpace(topic)}

	var prose strings.Builder
	last := 0
	for _, m := range dollarSpanRegex.FindAllStringSubmatchIndex(text, -1) {
		prose.WriteString(text[last:m[0]])
		expr := text[m[2]:m[3]]
		eq, err := parser.Parse(expr)
		if err != nil {
			// Неразбираемый спан уходит в прозу дословно
			e.logger.Warn("Выражение в $...$ не разобралось, понижено до прозы",
				zap.String("expression", expr),
				zap.Error(err),
			)
			prose.WriteString(expr)
		} else {
			e.flushProse(&intent, &prose)
			idx := len(intent.Equations)
			intent.Equations = append(intent.Equations, eq)
			intent.Narrative = append(intent.Narrative, models.NarrativeFragment{
				Text:          expr,
				EquationIndex: &idx,
			})
		}
		last = m[1]
	}
	prose.WriteString(text[last:])
	e.flushProse(&intent, &prose)

	if intent.Topic == "" {
		intent.Topic = deriveTopic(intent)
	}
	return intent
}

// flushProse режет накопленную прозу на предложения и добавляет их в
// намерение. Операторная структура внутри предложения делает его
// кандидатом в уравнения; не разобравшиеся кандидаты остаются прозой.
func (e *Extractor) flushProse(intent *models.SceneIntent, prose *strings.Builder) {
	text := prose.String()
	prose.Reset()

	for _, sentence := range splitSentences(text) {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if looksLikeEquation(trimmed) {
			eq, err := parser.Parse(trimmed)
			if err == nil {
				idx := len(intent.Equations)
				intent.Equations = append(intent.Equations, eq)
				intent.Narrative = append(intent.Narrative, models.NarrativeFragment{
					Text:          trimmed,
					EquationIndex: &idx,
				})
				continue
			}
			e.logger.Debug("Кандидат в уравнения понижен до прозы",
				zap.String("fragment", trimmed),
				zap.Error(err),
			)
		}
		intent.Narrative = append(intent.Narrative, models.NarrativeFragment{Text: trimmed})
	}
}

// looksLikeEquation — быстрый структурный фильтр перед полным разбором.
func looksLikeEquation(s string) bool {
	if strings.Contains(s, "=") {
		return true
	}
	if strings.Contains(s, "d/d") || strings.Contains(s, "∫") {
		return true
	}
	// Показатель степени без пробельной прозы вокруг
	if (strings.Contains(s, "^") || strings.Contains(s, "**")) && !strings.Contains(strings.TrimSpace(s), " the ") {
		return true
	}
	return false
}

// splitSentences режет текст по границам предложений и переводам строк.
func splitSentences(text string) []string {
	var out []string
	var sb strings.Builder
	for _, r := range text {
		switch r {
		case '.', '!', '?', ';', '\n':
			if s := sb.String(); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if s := sb.String(); strings.TrimSpace(s) != "" {
		out = append(out, s)
	}
	return out
}

// deriveTopic выводит тему, когда запрос её не назвал: первое
// прозаическое предложение, иначе первое уравнение.
func deriveTopic(intent models.SceneIntent) string {
	for _, frag := range intent.Narrative {
		if frag.EquationIndex == nil {
			return frag.Text
		}
	}
	if len(intent.Equations) > 0 {
		return intent.Equations[0].Normalized
	}
	return ""
}
