package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmeshcher/e5watcher/internal/model"
)

// LedgerStore хранит журнал отправленных уведомлений в JSON-файле.
type LedgerStore struct {
	path string
}

// NewLedgerStore создаёт хранилище журнала по указанному пути.
func NewLedgerStore(path string) *LedgerStore {
	return &LedgerStore{path: path}
}

// Load читает журнал целиком. При любой ошибке чтения возвращается пустой
// журнал вместе с ошибкой: повреждённый файл не должен навсегда подавить
// отправку уведомлений, лишняя отправка предпочтительнее тихого простоя.
func (s *LedgerStore) Load() (model.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Ledger{}, nil
		}
		return model.Ledger{}, fmt.Errorf("read ledger: %w", err)
	}

	var l model.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return model.Ledger{}, fmt.Errorf("decode ledger: %w", err)
	}
	if l == nil {
		l = model.Ledger{}
	}

	return l, nil
}

// Save атомарно записывает журнал целиком.
func (s *LedgerStore) Save(l model.Ledger) error {
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
