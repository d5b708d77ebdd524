// Package activity реализует движок сверки финансовой активности
// пользователя: нормализацию разнородных записей двух хранилищ,
// классификацию, определение владельца и сборку итоговой истории.
package activity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nmalakhov/canteen-activity/internal/model"
)

// Role помечает происхождение сырой записи: заказ или запись журнала.
type Role string

const (
	RoleOrder  Role = "order"
	RoleLedger Role = "ledger"
)

// Псевдонимы полей, нужные только нормализации. Ссылки на владельца и
// идентификаторы разрешает model.RawRecord, они общие с адаптерами.
var (
	timeAliases   = []string{"createdAt", "created_at", "date", "timestamp", "orderDate", "processedAt"}
	titleAliases  = []string{"title", "name", "description"}
	statusAliases = []string{"status", "state"}
	totalAliases  = []string{"total", "totalPrice", "amount"}
	itemsAliases  = []string{"items", "positions"}

	ledgerAmountAliases = []string{"amount", "sum", "value"}
	ledgerTypeAliases   = []string{"type", "kind"}
)

// Normalize приводит сырую запись к каноническому виду. Функция тотальна:
// отсутствующие и некорректные поля деградируют к документированным
// значениям по умолчанию (нулевая сумма, момент вызова now, производный
// идентификатор), ошибка не возвращается никогда — одна битая историческая
// запись не должна ронять всю историю пользователя.
func Normalize(rec model.RawRecord, role Role, now time.Time) model.ActivityEntry {
	entry := model.ActivityEntry{
		CreatedAt:    parseTime(rec, now),
		Status:       rec.FirstString(statusAliases...),
		SourceRecord: rec,
	}
	entry.StatusNormalized = strings.ToLower(entry.Status)
	entry.ID = resolveID(rec, role)
	entry.Amount = resolveAmount(rec, role)
	entry.Title = resolveTitle(rec, role, entry.ID)
	return entry
}

func resolveID(rec model.RawRecord, role Role) string {
	id := rec.OrderID()
	if role == RoleLedger {
		id = rec.LedgerID()
	}
	if id != "" {
		return id
	}
	return synthesizeID(rec, role)
}

// synthesizeID порождает идентификатор для записи, у которой его нет.
// Идентификатор выводится детерминированно из стабильных полей записи,
// чтобы повторные запросы возвращали то же значение; случайный хвост
// используется только для записей вообще без стабильных полей.
func synthesizeID(rec model.RawRecord, role Role) string {
	prefix := "R-"
	if role == RoleLedger {
		prefix = "TX-"
	}

	stable := []string{
		rec.OwnerRef(),
		rec.Student(),
		rec.OrderRef(),
		rec.FirstString(timeAliases...),
		rec.FirstString(totalAliases...),
		rec.FirstString(ledgerAmountAliases...),
		rec.FirstString(statusAliases...),
	}
	var parts []string
	for _, v := range stable {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			return prefix + "unknown"
		}
		return prefix + hex.EncodeToString(buf)
	}

	sum := sha256.Sum256([]byte(string(role) + "|" + strings.Join(parts, "|")))
	return prefix + hex.EncodeToString(sum[:])[:12]
}

func resolveTitle(rec model.RawRecord, role Role, id string) string {
	if t := rec.FirstString(titleAliases...); t != "" {
		return t
	}
	if role == RoleLedger {
		if t := rec.FirstString(ledgerTypeAliases...); t != "" {
			return t
		}
		return "Операция " + id
	}
	return "Заказ " + id
}

// resolveAmount возвращает абсолютную сумму записи. Для заказов без
// готового итога сумма собирается из позиций (quantity × price);
// нечитаемые позиции дают ноль, а не ошибку.
func resolveAmount(rec model.RawRecord, role Role) decimal.Decimal {
	if role == RoleLedger {
		if d, ok := rec.Decimal(ledgerAmountAliases...); ok {
			return d.Abs()
		}
		return decimal.Zero
	}

	if d, ok := rec.Decimal(totalAliases...); ok {
		return d.Abs()
	}

	total := decimal.Zero
	for _, item := range rec.Items(itemsAliases...) {
		price, ok := item.Decimal("price")
		if !ok {
			continue
		}
		qty, ok := item.Decimal("qty", "quantity")
		if !ok {
			qty = decimal.NewFromInt(1)
		}
		total = total.Add(price.Mul(qty))
	}
	return total.Abs()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime возвращает первое разобранное значение среди псевдонимов
// временной метки. Нечитаемое значение не обрывает перебор: следующий
// псевдоним может нести корректную метку. Если не разобрался ни один —
// момент вызова now (осознанная потеря точности, а не ошибка).
func parseTime(rec model.RawRecord, now time.Time) time.Time {
	for _, k := range timeAliases {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if ts, ok := parseTimeValue(v); ok {
			return ts
		}
	}
	return now
}

func parseTimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	case float64:
		return fromUnix(int64(t)), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromUnix(n), true
		}
	case int64:
		return fromUnix(t), true
	}
	return time.Time{}, false
}

// fromUnix различает секунды и миллисекунды по порядку величины.
func fromUnix(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
