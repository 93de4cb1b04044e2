// Package handler содержит HTTP-обработчики веб-панели наблюдателя подписки E5.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/e5watcher/internal/model"
	"github.com/mmeshcher/e5watcher/internal/policy"
	"github.com/mmeshcher/e5watcher/internal/repository"
)

// SnapshotProvider определяет контракт чтения последнего снимка для панели.
type SnapshotProvider interface {
	LoadPrevious() (*model.Snapshot, error)
}

// Handler реализует HTTP-обработчики веб-панели.
type Handler struct {
	snapshots SnapshotProvider
	severity  policy.SeverityConfig
	logger    *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(snapshots SnapshotProvider, severity policy.SeverityConfig, logger *zap.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		severity:  severity,
		logger:    logger,
	}
}

// Status возвращает последний снимок в формате файла output.json.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.LoadPrevious()
	if err != nil {
		if errors.Is(err, repository.ErrNoPreviousSnapshot) {
			writeError(w, http.StatusServiceUnavailable, "no snapshot yet, try again later")
			return
		}
		h.logger.Error("load snapshot error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// Health сообщает, что сервер жив.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
