package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmeshcher/e5watcher/internal/model"
)

// SnapshotStore хранит последний снимок состояния подписки в JSON-файле.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore создаёт хранилище снимков по указанному пути.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// LoadPrevious возвращает сохранённый ранее снимок.
// Если файла нет, возвращается ErrNoPreviousSnapshot.
func (s *SnapshotStore) LoadPrevious() (*model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoPreviousSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return &snap, nil
}

// Save атомарно записывает снимок, замещая предыдущий.
func (s *SnapshotStore) Save(snap *model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
