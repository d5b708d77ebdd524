// Package handler содержит HTTP-обработчики API сервиса активности.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nmalakhov/canteen-activity/internal/activity"
	"github.com/nmalakhov/canteen-activity/internal/metrics"
	"github.com/nmalakhov/canteen-activity/internal/middleware"
	"github.com/nmalakhov/canteen-activity/internal/model"
)

// Service определяет контракт движка активности, используемый
// HTTP-обработчиками.
type Service interface {
	GetActivity(ctx context.Context, userID string) ([]model.ActivityEntry, error)
	StorageMode(ctx context.Context) model.StorageMode
}

// Handler реализует HTTP-обработчики API сервиса активности.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Registry
	corsOrigin     string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// metrics может быть nil, corsOrigin — пустым.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, m *metrics.Registry, corsOrigin string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        m,
		corsOrigin:     corsOrigin,
	}
}

type activityResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	CreatedAt        string `json:"created_at"`
	Status           string `json:"status"`
	StatusNormalized string `json:"status_normalized"`
	Kind             string `json:"kind"`
	Direction        string `json:"direction"`
	Sign             int    `json:"sign"`
	Amount           string `json:"amount"`
}

// GetActivity возвращает историю активности кошелька текущего пользователя.
// Пустая история — успешный ответ с пустым списком, не 204 и не 404.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	entries, err := h.service.GetActivity(r.Context(), userID)
	if err != nil {
		if errors.Is(err, activity.ErrUnauthorized) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("get activity error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, activityResponse{
			ID:               e.ID,
			Title:            e.Title,
			CreatedAt:        e.CreatedAt.Format(time.RFC3339),
			Status:           e.Status,
			StatusNormalized: e.StatusNormalized,
			Kind:             string(e.Kind),
			Direction:        string(e.Direction),
			Sign:             e.Sign,
			Amount:           e.Amount.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type pingResponse struct {
	Mode string `json:"mode"`
}

// Ping сообщает активный режим хранения: 200 для документного бэкенда,
// 503 — когда запросы обслуживает файловый снапшот.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	mode := h.service.StorageMode(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if mode != model.StorageModeDocument {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(pingResponse{Mode: string(mode)}); err != nil {
		h.logger.Error("encode ping response", zap.Error(err))
	}
}
