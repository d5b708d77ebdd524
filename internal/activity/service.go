package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nmalakhov/canteen-activity/internal/metrics"
	"github.com/nmalakhov/canteen-activity/internal/model"
	"github.com/nmalakhov/canteen-activity/internal/storage"
)

// ErrUnauthorized возвращается, если идентификатор пользователя пуст или
// не найден в справочнике.
var ErrUnauthorized = errors.New("unauthorized")

// orderRefPrefix — зарезервированный префикс ссылок на заказы. Запись
// пополнения с такой ссылкой показывается в истории заказов, несмотря на
// общее правило исключения пополнений.
const orderRefPrefix = "RES-"

// Storage описывает контракт выбора бэкенда, используемый движком.
type Storage interface {
	Select(ctx context.Context) (storage.Backend, model.StorageMode)
}

// Service — точка входа движка активности: выбирает бэкенд, собирает
// кандидатов, фильтрует по владельцу, нормализует, классифицирует и
// возвращает отсортированную историю. Состояния между вызовами нет,
// параллельные запросы независимы.
type Service struct {
	storage Storage
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewService создаёт движок активности. metrics может быть nil.
func NewService(st Storage, logger *zap.Logger, m *metrics.Registry) *Service {
	return &Service{
		storage: st,
		logger:  logger,
		metrics: m,
	}
}

// StorageMode возвращает режим хранения, который был бы выбран для
// запроса прямо сейчас.
func (s *Service) StorageMode(ctx context.Context) model.StorageMode {
	_, mode := s.storage.Select(ctx)
	return mode
}

// GetActivity возвращает историю активности кошелька пользователя:
// заказы и связанные с заказами записи журнала, без пополнений,
// отсортированные по времени создания по убыванию.
//
// Пустая история — успешный результат, а не ошибка. Любая ошибка выборки
// делает неуспешным весь вызов: частичная история выглядела бы как полная
// и вводила бы пользователя в заблуждение.
func (s *Service) GetActivity(ctx context.Context, userID string) ([]model.ActivityEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthorized
	}

	backend, mode := s.storage.Select(ctx)
	if s.metrics != nil {
		s.metrics.SetDocumentReachable(mode == model.StorageModeDocument)
	}

	start := time.Now()

	user, err := backend.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		s.observe(mode, "error", start)
		s.logger.Error("find user failed", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("find user: %w", err)
	}

	cands, err := backend.FetchCandidates(ctx, *user)
	if err != nil {
		s.observe(mode, "error", start)
		s.logger.Error("fetch candidates failed",
			zap.String("userID", userID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	entries := buildEntries(*user, cands, time.Now())
	s.observe(mode, "ok", start)
	return entries, nil
}

func (s *Service) observe(mode model.StorageMode, result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveFetch(string(mode), result, time.Since(start))
	}
}

// buildEntries собирает итоговый список из избыточной выборки кандидатов.
// Чистая функция, вынесена отдельно от I/O ради тестируемости.
func buildEntries(user model.User, cands *storage.Candidates, now time.Time) []model.ActivityEntry {
	var ownedOrders []model.RawRecord
	ownedIDs := make(map[string]struct{})
	for _, rec := range cands.Orders {
		if !OwnsOrder(user, rec) {
			continue
		}
		ownedOrders = append(ownedOrders, rec)
		if id := rec.OrderID(); id != "" {
			ownedIDs[id] = struct{}{}
		}
	}

	entries := make([]model.ActivityEntry, 0, len(ownedOrders)+len(cands.Ledger))
	seen := make(map[string]struct{})

	// Записи журнала добавляются раньше заказов: при равных метках
	// времени они должны оказаться выше в выдаче.
	for _, rec := range cands.Ledger {
		if !OwnsLedger(user, rec, ownedIDs) {
			continue
		}
		// Пополнения показываются в другом разделе; в историю заказов
		// они попадают только через явную ссылку на заказ.
		if IsTopup(rec) && !referencesOrder(rec, ownedIDs) {
			continue
		}
		entry := Normalize(rec, RoleLedger, now)
		Classify(&entry, rec, RoleLedger)
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		entries = append(entries, entry)
	}

	for _, rec := range ownedOrders {
		entry := Normalize(rec, RoleOrder, now)
		Classify(&entry, rec, RoleOrder)
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries
}

// referencesOrder проверяет, ссылается ли запись журнала на заказ:
// точное совпадение с заказом пользователя либо токен с зарезервированным
// префиксом. Сравнение без учёта регистра.
func referencesOrder(rec model.RawRecord, ownedIDs map[string]struct{}) bool {
	ref := rec.OrderRef()
	if ref == "" {
		return false
	}
	if strings.Contains(strings.ToUpper(ref), orderRefPrefix) {
		return true
	}
	for id := range ownedIDs {
		if strings.EqualFold(id, ref) {
			return true
		}
	}
	return false
}
