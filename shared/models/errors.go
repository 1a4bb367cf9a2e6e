package models

import "errors"

// Таксономия ошибок конвейера:
//   - ErrParse            — некорректное уравнение; восстановимо, фрагмент
//     понижается до прозы.
//   - ErrGenerationFailed — таймаут/ошибка/непарсибельный ответ AI или
//     невалидный сгенерированный план; восстановимо, включает fallback.
//   - ErrFallbackInvalid  — fallback-план сам не прошёл валидацию:
//     дефект шаблона или схемы, наружу не глотается.
//   - ErrCompile          — компиляция валидированного плана не должна
//     падать; если упала — программный дефект, не ретраится.
//   - ErrRenderFailed     — терминальная ошибка рендера после ретраев.
var (
	ErrParse            = errors.New("equation parse failed")
	ErrGenerationFailed = errors.New("plan generation failed")
	ErrFallbackInvalid  = errors.New("fallback plan failed validation")
	ErrCompile          = errors.New("scene compilation failed")
	ErrRenderFailed     = errors.New("render failed")
	ErrNoContent        = errors.New("no animatable content")
	ErrNotFound         = errors.New("resource not found")
)
