package models

// NarrativeFragment — фрагмент прозы, опционально привязанный к уравнению.
type NarrativeFragment struct {
	Text          string `json:"text"`
	EquationIndex *int   `json:"equationIndex,omitempty"` // индекс в SceneIntent.Equations, nil если нет привязки
}

// SceneIntent — извлечённое намерение запроса: тема, упорядоченные
// уравнения и связанные с ними фрагменты повествования.
// Создаётся один раз на запрос и дальше только читается; между
// запросами не разделяется.
type SceneIntent struct {
	Topic     string              `json:"topic"`
	Equations []Equation          `json:"equations"`
	Narrative []NarrativeFragment `json:"narrative"`
}

// IsEmpty сообщает, что в намерении нет ни уравнений, ни прозы.
// Такой intent всё равно обрабатывается: fallback строит вырожденный
// план из одного narrate-шага.
func (si *SceneIntent) IsEmpty() bool {
	return len(si.Equations) == 0 && len(si.Narrative) == 0
}
