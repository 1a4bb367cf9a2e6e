package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

// isValidJSON проверяет, можно ли распарсить строку как JSON.
func isValidJSON(s string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}

var (
	jsonFenceRegex = regexp.MustCompile("(?s)```json\\s*([\\s\\S]*?)\\s*```")
	anyFenceRegex  = regexp.MustCompile("(?s)```\\s*([\\s\\S]*?)\\s*```")
)

// ExtractJSONContent вырезает JSON-полезную нагрузку из сырого ответа AI:
// сначала блок ```json ... ```, затем любой ``` ... ```, затем спан от
// первой '{' до последней '}'. Никакой балансировки скобок и прочего
// «ремонта» здесь нет намеренно: невалидный JSON возвращается как пустая
// строка, и вызывающий уходит в fallback.
func ExtractJSONContent(rawText string) string {
	rawText = strings.TrimSpace(rawText)

	if matches := jsonFenceRegex.FindStringSubmatch(rawText); len(matches) > 1 {
		if candidate := strings.TrimSpace(matches[1]); isValidJSON(candidate) {
			return candidate
		}
	}

	if matches := anyFenceRegex.FindStringSubmatch(rawText); len(matches) > 1 {
		if candidate := strings.TrimSpace(matches[1]); isValidJSON(candidate) {
			return candidate
		}
	}

	firstBrace := strings.Index(rawText, "{")
	lastBrace := strings.LastIndex(rawText, "}")
	if firstBrace != -1 && lastBrace > firstBrace {
		if candidate := rawText[firstBrace : lastBrace+1]; isValidJSON(candidate) {
			return candidate
		}
	}

	return ""
}

// StringShort обрезает строку до maxLen, добавляя многоточие.
// Используется для логирования сырых ответов AI.
func StringShort(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}

// SanitizeFileName оставляет в строке только буквы, цифры, дефис и
// подчёркивание; пробелы заменяются подчёркиванием. Используется для
// имени артефакта вида <topic>_<quality>.mp4.
func SanitizeFileName(s string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "scene"
	}
	return sb.String()
}
