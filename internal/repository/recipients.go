package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmeshcher/e5watcher/internal/model"
)

// RecipientSource читает список получателей из статического JSON-файла.
type RecipientSource struct {
	path string
}

// NewRecipientSource создаёт источник получателей по указанному пути.
func NewRecipientSource(path string) *RecipientSource {
	return &RecipientSource{path: path}
}

// LoadAll возвращает всех получателей в порядке их следования в файле.
func (s *RecipientSource) LoadAll() ([]model.Recipient, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read recipients: %w", err)
	}

	var recipients []model.Recipient
	if err := json.Unmarshal(data, &recipients); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}

	return recipients, nil
}
