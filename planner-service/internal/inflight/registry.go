// Package inflight реализует реестр задач рендеринга в полёте с
// раздачей результата всем ожидающим. Гарантия: на один fingerprint —
// не больше одного рендера одновременно.
package inflight

import (
	"context"
	"sync"
	"time"

	"ganita-server/shared/models"
)

// Терминальные отказы видны опросу ещё какое-то время: успех живёт в
// кэше, а упавший рендер в кэш не пишется никогда.
const failureRetention = 10 * time.Minute

// entry — одна задача в полёте. done закрывается ровно один раз.
type entry struct {
	done   chan struct{}
	result models.RenderResult
}

type failedEntry struct {
	result models.RenderResult
	at     time.Time
}

// Registry — процессный реестр задач рендеринга, ключ — fingerprint.
// Не-ad-hoc блокировки по запросам: один общий реестр, совпавшие
// запросы подписываются на один и тот же результат.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	failed  map[string]failedEntry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		failed:  make(map[string]failedEntry),
	}
}

// Begin регистрирует fingerprint. Возвращает true, если вызывающий стал
// владельцем задачи и обязан завершить её через Complete; false — задача
// уже в полёте, результат надо ждать через Wait. Новый рендер стирает
// запись о прошлом отказе.
func (r *Registry) Begin(fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[fingerprint]; exists {
		return false
	}
	delete(r.failed, fingerprint)
	r.entries[fingerprint] = &entry{done: make(chan struct{})}
	return true
}

// Complete публикует результат и будит всех ожидающих. Запись удаляется
// из реестра: следующий запрос с тем же fingerprint пойдёт в кэш или
// начнёт новый рендер. Отказ задерживается в реестре, чтобы опрос видел
// «failed», а не «not found».
func (r *Registry) Complete(fingerprint string, result models.RenderResult) {
	r.mu.Lock()
	e, exists := r.entries[fingerprint]
	if exists {
		delete(r.entries, fingerprint)
	}
	if result.Status == models.RenderStatusFailed {
		r.failed[fingerprint] = failedEntry{result: result, at: time.Now()}
	} else {
		delete(r.failed, fingerprint)
	}
	r.mu.Unlock()

	if exists {
		e.result = result
		close(e.done)
	}
}

// Failed возвращает недавний терминальный отказ по fingerprint.
func (r *Registry) Failed(fingerprint string) (models.RenderResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.failed[fingerprint]
	if !ok {
		return models.RenderResult{}, false
	}
	if time.Since(f.at) > failureRetention {
		delete(r.failed, fingerprint)
		return models.RenderResult{}, false
	}
	return f.result, true
}

// Wait блокируется до завершения задачи или отмены контекста.
// Второй результат false означает, что задачи в полёте нет.
func (r *Registry) Wait(ctx context.Context, fingerprint string) (models.RenderResult, bool, error) {
	r.mu.Lock()
	e, exists := r.entries[fingerprint]
	r.mu.Unlock()
	if !exists {
		return models.RenderResult{}, false, nil
	}

	select {
	case <-e.done:
		return e.result, true, nil
	case <-ctx.Done():
		return models.RenderResult{}, true, ctx.Err()
	}
}

// Pending сообщает, есть ли задача в полёте по fingerprint.
func (r *Registry) Pending(fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[fingerprint]
	return exists
}
