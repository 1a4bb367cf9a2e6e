package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretsDir — стандартный путь Docker Secrets.
const secretsDir = "/run/secrets"

// ReadSecret читает секрет из файла /run/secrets/<name>.
// Fallback на переменные окружения не делаем намеренно: поведение
// должно быть одинаковым во всех окружениях.
func ReadSecret(secretName string) (string, error) {
	filePath := filepath.Join(secretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadOptionalSecret — как ReadSecret, но отсутствие файла не ошибка.
// Нужен для секретов, обязательных только при определённой конфигурации
// (например, AI API ключ не нужен для локального Ollama).
func ReadOptionalSecret(secretName string) (string, error) {
	secret, err := ReadSecret(secretName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return secret, nil
}
