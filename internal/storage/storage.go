// Package storage определяет контракт чтения сырых записей для движка
// активности. Два взаимозаменяемых бэкенда — документное хранилище и
// файловый снапшот — реализуют один и тот же интерфейс выборки кандидатов.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/nmalakhov/canteen-activity/internal/model"
)

// ErrUserNotFound возвращается, если пользователь отсутствует в справочнике.
var ErrUserNotFound = errors.New("user not found")

// Candidates — избыточная выборка записей, ещё не отфильтрованная по
// владельцу. Адаптер сознательно отдаёт больше, чем нужно (включая заказы
// вообще без владельца), чтобы вся логика определения принадлежности жила
// в одном месте — в движке активности.
type Candidates struct {
	Orders []model.RawRecord
	Ledger []model.RawRecord
}

// Adapter — контракт выборки кандидатов, одинаковый для обоих бэкендов.
//
// Orders: записи, явно ссылающиеся на пользователя, плюс записи без ссылки
// на владельца. Ledger: записи, явно ссылающиеся на пользователя, плюс
// записи, чья ссылка совпадает с идентификатором любого заказа из Orders.
type Adapter interface {
	FetchCandidates(ctx context.Context, user model.User) (*Candidates, error)
}

// UserFinder — справочник пользователей, нужен движку только для сигналов
// легаси-сопоставления (имя, почта).
type UserFinder interface {
	FindUser(ctx context.Context, userID string) (*model.User, error)
}

// Backend объединяет выборку кандидатов и справочник пользователей одного
// бэкенда: профиль и записи всегда читаются из одного источника.
type Backend interface {
	Adapter
	UserFinder
}

// Pinger проверяет доступность бэкенда.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Selector выбирает активный бэкенд. Выбор происходит один раз на запрос
// и возвращается явным значением StorageMode, а не читается из глобального
// флага: смена доступности посреди запроса не должна влиять на его ход.
type Selector interface {
	Select(ctx context.Context) (Backend, model.StorageMode)
}

// ProbeSelector пингует документное хранилище с коротким таймаутом и при
// неудаче отдаёт файловый снапшот.
type ProbeSelector struct {
	document Backend
	probe    Pinger
	fallback Backend
	timeout  time.Duration
}

// NewProbeSelector создаёт селектор с проверкой доступности документного
// хранилища. Нулевой timeout заменяется на секунду.
func NewProbeSelector(document Backend, probe Pinger, fallback Backend, timeout time.Duration) *ProbeSelector {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ProbeSelector{
		document: document,
		probe:    probe,
		fallback: fallback,
		timeout:  timeout,
	}
}

// Select возвращает активный адаптер и режим хранения на момент вызова.
func (s *ProbeSelector) Select(ctx context.Context) (Backend, model.StorageMode) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.probe.Ping(pctx); err == nil {
		return s.document, model.StorageModeDocument
	}
	return s.fallback, model.StorageModeSnapshot
}

// FixedSelector всегда возвращает один и тот же адаптер. Используется в
// тестах и при принудительном выборе режима.
type FixedSelector struct {
	Backend Backend
	Mode    model.StorageMode
}

// Select возвращает закреплённый адаптер.
func (s FixedSelector) Select(context.Context) (Backend, model.StorageMode) {
	return s.Backend, s.Mode
}
