package utils

import (
	"bytes"
	"encoding/json"
)

// DecodeStrict декодирует JSON-данные в out, запрещая неизвестные поля.
// Используется для схемно-строгого разбора ответов AI: любое лишнее
// поле — это ошибка, а не повод для частичного восстановления.
func DecodeStrict(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
