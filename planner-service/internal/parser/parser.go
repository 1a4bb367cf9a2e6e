// Package parser разбирает сырые математические выражения в
// нормализованную символьную форму со структурной классификацией.
// Никакой символьной алгебры здесь нет намеренно: классификация — это
// приоритетный набор структурных предикатов над нормализованной строкой,
// а не иерархия типов уравнений.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ganita-server/shared/models"
)

// Имена функций, которые не считаются свободными переменными.
var knownFunctions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"log": true, "ln": true, "exp": true, "sqrt": true, "abs": true,
	"diff": true, "int": true, "integral": true, "integrate": true,
}

// Тригонометрические функции — отдельное подмножество для классификации.
var trigFunctions = []string{"sin", "cos", "tan", "cot", "sec", "csc"}

var derivativeRegex = regexp.MustCompile(`d[a-z]?/d([a-z])`)

// Parse разбирает выражение в models.Equation.
// Ошибка разбора (пустое выражение, несбалансированные скобки) — это
// models.ErrParse; вызывающий сам решает, отбросить фрагмент или
// понизить его до прозы. В unknown ошибки не сворачиваются никогда.
func Parse(raw string) (models.Equation, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return models.Equation{}, fmt.Errorf("%w: empty expression", models.ErrParse)
	}
	if err := checkBalanced(normalized); err != nil {
		return models.Equation{}, err
	}
	if !containsMathStructure(normalized) {
		return models.Equation{}, fmt.Errorf("%w: no mathematical structure in %q", models.ErrParse, raw)
	}

	eq := models.Equation{
		Raw:        raw,
		Normalized: normalized,
		Variables:  freeVariables(normalized),
		Terms:      splitTerms(normalized),
		Degree:     maxDegree(normalized),
	}
	eq.Class = classify(normalized)
	return eq, nil
}

// Normalize приводит выражение к канонической форме: '**' заменяет на
// '^', unicode-операторы на ASCII, убирает пробелы. Прозаические токены
// на краях отбрасываются: «Solve 2x + 3 = 7» нормализуется в «2x+3=7»,
// и show_equation не рендерит приклеенную прозу. Идемпотентна:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	replacer := strings.NewReplacer(
		"**", "^",
		"−", "-", // математический минус
		"×", "*",
		"÷", "/",
		"²", "^2",
		"³", "^3",
	)
	fields := strings.Fields(replacer.Replace(raw))

	start, end := 0, len(fields)
	for start < end && !isMathToken(fields[start]) {
		start++
	}
	for end > start && !isMathToken(fields[end-1]) {
		end--
	}

	var sb strings.Builder
	for _, f := range fields[start:end] {
		sb.WriteString(f)
	}
	return sb.String()
}

// isMathToken сообщает, несёт ли токен математическую структуру:
// оператор, цифра, скобка, одиночная буква-переменная, имя известной
// функции или дифференциал вида dx.
func isMathToken(tok string) bool {
	if strings.ContainsAny(tok, "=+-*/^()0123456789'") || strings.ContainsRune(tok, '∫') {
		return true
	}
	lower := strings.ToLower(tok)
	if len(lower) == 1 && lower[0] >= 'a' && lower[0] <= 'z' {
		return true
	}
	if len(lower) == 2 && lower[0] == 'd' && lower[1] >= 'a' && lower[1] <= 'z' {
		return true
	}
	return knownFunctions[lower]
}

// checkBalanced проверяет баланс круглых скобок.
func checkBalanced(s string) error {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced parentheses in %q", models.ErrParse, s)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced parentheses in %q", models.ErrParse, s)
	}
	return nil
}

// containsMathStructure отсекает фрагменты, в которых нет ни оператора,
// ни вызова функции, ни переменной: «hello» — это проза, а не уравнение.
// Вызов известной функции — структура сам по себе: sin(x) без внешнего
// оператора остаётся уравнением класса trigonometric.
func containsMathStructure(s string) bool {
	if strings.ContainsAny(s, "=+-*/^") || strings.ContainsRune(s, '∫') {
		return true
	}
	for name := range knownFunctions {
		if strings.Contains(s, name+"(") {
			return true
		}
	}
	return len(freeVariables(s)) > 0 && strings.ContainsAny(s, "0123456789()")
}

// classify применяет структурные предикаты в порядке приоритета.
// Порядок фиксирован: производная/интеграл → система → степень →
// тригонометрия → unknown. Степень считается только по вхождениям
// переменных вне аргументов функций, поэтому sin(x) не становится
// linear раньше trigonometric.
func classify(normalized string) models.EquationClass {
	switch {
	case isDerivative(normalized):
		return models.EquationDerivative
	case isIntegral(normalized):
		return models.EquationIntegral
	case strings.Count(normalized, "=") >= 2:
		return models.EquationSystem
	}

	switch deg := maxDegree(normalized); {
	case deg >= 2:
		return models.EquationPolynomial
	case deg == 1:
		return models.EquationLinear
	}

	for _, fn := range trigFunctions {
		if strings.Contains(normalized, fn+"(") {
			return models.EquationTrigonometric
		}
	}

	return models.EquationUnknown
}

func isDerivative(s string) bool {
	if derivativeRegex.MatchString(s) {
		return true
	}
	// Штриховая запись: f'(x), y'
	if strings.Contains(s, "'") {
		return true
	}
	return strings.Contains(s, "diff(")
}

func isIntegral(s string) bool {
	if strings.ContainsRune(s, '∫') {
		return true
	}
	return strings.Contains(s, "int(") || strings.Contains(s, "integral(") || strings.Contains(s, "integrate(")
}

// maskFunctionArgs заменяет аргументы вызовов известных функций на '#',
// чтобы сканы степени и переменных не заглядывали внутрь sin(...), d/dx и
// прочих операторных конструкций.
func maskFunctionArgs(s string) string {
	runes := []rune(s)
	masked := make([]rune, len(runes))
	copy(masked, runes)

	for name := range knownFunctions {
		for start := 0; ; {
			idx := strings.Index(string(masked[start:]), name+"(")
			if idx == -1 {
				break
			}
			open := start + idx + len(name)
			depth := 0
			for i := open; i < len(masked); i++ {
				switch masked[i] {
				case '(':
					depth++
				case ')':
					depth--
				}
				if masked[i] != '(' && masked[i] != ')' {
					if depth > 0 {
						masked[i] = '#'
					}
				}
				if depth == 0 && i > open {
					break
				}
			}
			start = open
		}
	}
	return string(masked)
}

// maxDegree возвращает максимальную степень переменной в выражении.
// Учитываются только вхождения вне аргументов функций: явные показатели
// x^n и «голые» переменные (степень 1).
func maxDegree(s string) int {
	masked := maskFunctionArgs(derivativeRegex.ReplaceAllString(s, ""))
	runes := []rune(masked)
	degree := 0

	for i := 0; i < len(runes); i++ {
		if !isVariableRune(runes, i) {
			continue
		}
		d := 1
		if i+1 < len(runes) && runes[i+1] == '^' {
			j := i + 2
			val := 0
			for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
				val = val*10 + int(runes[j]-'0')
				j++
			}
			if val > 0 {
				d = val
			}
		}
		if d > degree {
			degree = d
		}
	}
	return degree
}

// isVariableRune сообщает, является ли руна в позиции i одиночной
// буквой-переменной (не частью имени функции или 'd' из d/dx).
func isVariableRune(runes []rune, i int) bool {
	r := runes[i]
	if r < 'a' || r > 'z' {
		return false
	}
	// Часть более длинного идентификатора — не одиночная переменная
	prevIsLetter := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
	nextIsLetter := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
	if prevIsLetter || nextIsLetter {
		return false
	}
	// 'e' считаем константой Эйлера
	if r == 'e' {
		return false
	}
	return true
}

// freeVariables возвращает отсортированный список свободных переменных.
// Переменная дифференцирования из d/dx тоже свободна.
func freeVariables(s string) []string {
	seen := map[string]bool{}

	for _, m := range derivativeRegex.FindAllStringSubmatch(s, -1) {
		seen[m[1]] = true
	}

	masked := maskFunctionArgs(derivativeRegex.ReplaceAllString(s, ""))
	runes := []rune(masked)
	for i := 0; i < len(runes); i++ {
		if isVariableRune(runes, i) {
			seen[string(runes[i])] = true
		}
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// splitTerms разбивает часть выражения до первого '=' на слагаемые по
// верхнеуровневым знакам +/-. Знак входит в текст слагаемого, кроме
// первого. Индексы слагаемых — это то, на что ссылаются шаги
// highlight_term.
func splitTerms(s string) []models.Term {
	side := s
	if idx := strings.Index(s, "="); idx > 0 {
		side = s[:idx]
	}

	var terms []models.Term
	runes := []rune(side)
	depth := 0
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth != 0 || i == start {
				continue
			}
			// Унарный знак после оператора — часть слагаемого
			prev := runes[i-1]
			if prev == '^' || prev == '*' || prev == '/' || prev == '(' || prev == '+' || prev == '-' {
				continue
			}
			terms = append(terms, makeTerm(string(runes[start:i])))
			start = i
		}
	}
	if start < len(runes) {
		terms = append(terms, makeTerm(string(runes[start:])))
	}
	return terms
}

func makeTerm(text string) models.Term {
	return models.Term{Text: text, Degree: maxDegree(text)}
}
