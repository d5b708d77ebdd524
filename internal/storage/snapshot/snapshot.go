// Package snapshot реализует резервный файловый бэкенд: единый
// JSON-снапшот, выгруженный внешним экспортёром из документного хранилища
// и просматриваемый в памяти. Используется, когда документное хранилище
// недоступно.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/nmalakhov/canteen-activity/internal/model"
	"github.com/nmalakhov/canteen-activity/internal/storage"
)

// file — формат файла снапшота.
type file struct {
	Users  []map[string]any `json:"users"`
	Orders []map[string]any `json:"orders"`
	Ledger []map[string]any `json:"ledger"`
}

// Store хранит загруженный снапшот и отвечает на запросы выборки
// полным просмотром в памяти.
type Store struct {
	mu     sync.RWMutex
	users  []model.RawRecord
	orders []model.RawRecord
	ledger []model.RawRecord
}

// NewStore загружает снапшот из файла по указанному пути.
func NewStore(path string) (*Store, error) {
	s := &Store{}
	if err := s.Reload(path); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload перечитывает файл снапшота. Вызывается при старте и может
// вызываться повторно после свежей выгрузки.
func (s *Store) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = toRecords(f.Users)
	s.orders = toRecords(f.Orders)
	s.ledger = toRecords(f.Ledger)
	return nil
}

func toRecords(docs []map[string]any) []model.RawRecord {
	recs := make([]model.RawRecord, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, model.RawRecord(d))
	}
	return recs
}

// FindUser ищет профиль пользователя среди записей снапшота.
func (s *Store) FindUser(_ context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.users {
		id := doc.FirstString("id")
		nativeID := doc.FirstString("_id")
		if id != userID && nativeID != userID {
			continue
		}
		if id == "" {
			id = userID
		}
		return &model.User{
			ID:       id,
			NativeID: nativeID,
			Name:     doc.FirstString("name"),
			Email:    doc.FirstString("email"),
		}, nil
	}
	return nil, storage.ErrUserNotFound
}

// FetchCandidates выбирает кандидатов по контракту storage.Adapter,
// зеркально запросам документного бэкенда: заказы с явной ссылкой на
// пользователя или вообще без владельца, затем записи журнала со ссылкой
// на пользователя или на любой заказ из кандидатов.
func (s *Store) FetchCandidates(_ context.Context, user model.User) (*storage.Candidates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []model.RawRecord
	orderIDs := make(map[string]struct{})
	for _, rec := range s.orders {
		if rec.HasOwnerRef() && !refersToUser(rec.OwnerRef(), user) {
			continue
		}
		orders = append(orders, rec)
		if id := rec.OrderID(); id != "" {
			orderIDs[strings.ToLower(id)] = struct{}{}
		}
	}

	var ledger []model.RawRecord
	for _, rec := range s.ledger {
		if refersToUser(rec.OwnerRef(), user) {
			ledger = append(ledger, rec)
			continue
		}
		if ref := rec.OrderRef(); ref != "" {
			if _, ok := orderIDs[strings.ToLower(ref)]; ok {
				ledger = append(ledger, rec)
			}
		}
	}

	return &storage.Candidates{Orders: orders, Ledger: ledger}, nil
}

func refersToUser(ref string, user model.User) bool {
	if ref == "" {
		return false
	}
	if ref == user.ID {
		return true
	}
	return user.NativeID != "" && ref == user.NativeID
}
