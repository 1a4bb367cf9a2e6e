package models

// EquationClass — плоский структурный тег уравнения.
// Класс определяется приоритетным набором структурных предикатов
// (см. parser), а не иерархией типов: добавление нового класса — это
// новый предикат + шаблон в fallback-движке.
type EquationClass string

const (
	EquationLinear        EquationClass = "linear"
	EquationPolynomial    EquationClass = "polynomial"
	EquationDerivative    EquationClass = "derivative"
	EquationIntegral      EquationClass = "integral"
	EquationTrigonometric EquationClass = "trigonometric"
	EquationSystem        EquationClass = "system"
	EquationUnknown       EquationClass = "unknown"
)

// IsValidEquationClass проверяет, является ли строка допустимым классом.
func IsValidEquationClass(c EquationClass) bool {
	switch c {
	case EquationLinear, EquationPolynomial, EquationDerivative, EquationIntegral,
		EquationTrigonometric, EquationSystem, EquationUnknown:
		return true
	default:
		return false
	}
}

// Term — одно слагаемое нормализованной формы (разбиение по верхнеуровневым
// знакам +/-). Индексы термов используются шагами highlight_term.
type Term struct {
	Text   string `json:"text"`   // нормализованный текст слагаемого, включая знак
	Degree int    `json:"degree"` // максимальная степень переменной внутри слагаемого
}

// Equation — разобранное уравнение. Неизменяемо после парсинга:
// все поля заполняются парсером один раз и дальше только читаются.
type Equation struct {
	Raw        string        `json:"raw"`        // исходная строка, как встретилась в тексте
	Normalized string        `json:"normalized"` // каноническая символьная форма
	Class      EquationClass `json:"class"`
	Variables  []string      `json:"variables"` // свободные переменные, отсортированы
	Terms      []Term        `json:"terms"`     // слагаемые левой части (или всей формы, если '=' нет)
	Degree     int           `json:"degree"`    // максимальная явная степень по всем переменным
}
