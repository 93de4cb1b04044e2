// Package repository содержит реализацию хранения состояния в JSON-файлах.
// Формат файлов фиксирован и совместим с веб-панелью, читающей output.json.
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoPreviousSnapshot возвращается, если предыдущий снимок ещё не сохранялся.
var ErrNoPreviousSnapshot = errors.New("no previous snapshot")

// writeFileAtomic записывает данные через временный файл с последующим
// переименованием, чтобы файл назначения никогда не оставался записанным
// наполовину, в том числе при падении процесса посреди записи.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
