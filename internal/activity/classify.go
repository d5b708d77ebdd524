package activity

import (
	"strings"

	"github.com/nmalakhov/canteen-activity/internal/model"
)

// classifierRule — одно правило классификации записи журнала.
// Правила проверяются по порядку, срабатывает первое подходящее, поэтому
// их приоритет виден явно и проверяется по отдельности.
type classifierRule struct {
	name  string
	match func(rec model.RawRecord) bool
	apply func(entry *model.ActivityEntry, rec model.RawRecord)
}

var ledgerRules = []classifierRule{
	{
		name:  "topup",
		match: IsTopup,
		apply: func(entry *model.ActivityEntry, _ model.RawRecord) {
			// Пополнение по определению входящее, знак сохранённой
			// суммы игнорируется.
			entry.Kind = model.KindTopup
			entry.Direction = model.DirectionCredit
		},
	},
	{
		name: "explicit-direction",
		match: func(rec model.RawRecord) bool {
			d := strings.ToLower(rec.FirstString("direction"))
			return d == "debit" || d == "credit"
		},
		apply: func(entry *model.ActivityEntry, rec model.RawRecord) {
			entry.Kind = model.KindOrder
			entry.Direction = model.DirectionCredit
			if strings.ToLower(rec.FirstString("direction")) == "debit" {
				entry.Direction = model.DirectionDebit
			}
		},
	},
	{
		name:  "amount-sign",
		match: func(model.RawRecord) bool { return true },
		apply: func(entry *model.ActivityEntry, rec model.RawRecord) {
			entry.Kind = model.KindOrder
			entry.Direction = model.DirectionCredit
			if d, ok := rec.Decimal(ledgerAmountAliases...); ok && d.IsNegative() {
				entry.Direction = model.DirectionDebit
			}
		},
	},
}

// Classify проставляет вид, направление и знак нормализованной записи.
// Заказы — всегда списание; записи журнала проходят упорядоченный список
// правил со слабыми сигналами (текст типа, внешний ключ, знак суммы).
func Classify(entry *model.ActivityEntry, rec model.RawRecord, role Role) {
	if role == RoleOrder {
		entry.Kind = model.KindOrder
		entry.Direction = model.DirectionDebit
		entry.Sign = entry.Direction.Sign()
		return
	}

	for _, rule := range ledgerRules {
		if rule.match(rec) {
			rule.apply(entry, rec)
			break
		}
	}
	entry.Sign = entry.Direction.Sign()
}

// IsTopup распознаёт запись пополнения: текст типа содержит "topup" или
// "top-", либо присутствует внешний ключ topupId.
func IsTopup(rec model.RawRecord) bool {
	t := strings.ToLower(rec.FirstString(ledgerTypeAliases...))
	if strings.Contains(t, "topup") || strings.Contains(t, "top-") {
		return true
	}
	return rec.Has("topupId")
}
