package models

// CommandOp — примитивная операция рендерера. Словарь намеренно мал и
// однороден: сложные шаги плана раскрываются компилятором в
// последовательности этих примитивов.
type CommandOp string

const (
	OpShowEquation CommandOp = "show_equation"
	OpHighlight    CommandOp = "highlight"
	OpFadeOut      CommandOp = "fade_out"
	OpMorph        CommandOp = "morph"
	OpFadeIn       CommandOp = "fade_in"
	OpPlot         CommandOp = "plot"
	OpCaption      CommandOp = "caption"
	OpWait         CommandOp = "wait"
)

// Command — одна примитивная команда. Все ссылки уже разрешены:
// рендерер получает готовые строки и числа, без индексов в intent.
type Command struct {
	Op       CommandOp `json:"op"`
	Payload  string    `json:"payload,omitempty"`  // текст уравнения/подписи/слагаемого
	Target   string    `json:"target,omitempty"`   // целевая форма для morph
	Duration float64   `json:"duration"`           // секунды
	Variable string    `json:"variable,omitempty"` // переменная для plot
}

// CompiledScene — скомпилированная сцена: последовательность примитивных
// команд плюс контент-отпечаток плана. Отпечаток не зависит от
// provenance: совпавшие планы из разных путей делят запись кэша.
type CompiledScene struct {
	Fingerprint string    `json:"fingerprint"`
	Topic       string    `json:"topic"`
	Commands    []Command `json:"commands"`
}

// TotalDuration — суммарная длительность всех команд сцены в секундах.
func (cs *CompiledScene) TotalDuration() float64 {
	var total float64
	for _, cmd := range cs.Commands {
		total += cmd.Duration
	}
	return total
}
