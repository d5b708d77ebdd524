package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRecord — слабо типизированная запись одного из хранилищ
// (декодированный JSON-документ). Исторические записи накопили разные
// варианты имён полей, поэтому доступ к значениям идёт только через
// методы разрешения псевдонимов, а не напрямую по ключам.
type RawRecord map[string]any

// Has сообщает, присутствует ли в записи хотя бы один из ключей
// с непустым значением.
func (r RawRecord) Has(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return true
		}
	}
	return false
}

// Value возвращает первое непустое значение среди перечисленных ключей.
func (r RawRecord) Value(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// FirstString возвращает первое непустое значение среди ключей,
// приведённое к строке. Числовые значения форматируются без потери
// точности, документные идентификаторы вида {"$oid": "..."} разворачиваются.
func (r RawRecord) FirstString(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

// Decimal возвращает первое значение среди ключей, которое удаётся
// интерпретировать как десятичное число.
func (r RawRecord) Decimal(keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if d, ok := toDecimal(v); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// Items возвращает вложенный массив записей (позиции заказа).
func (r RawRecord) Items(keys ...string) []RawRecord {
	v, ok := r.Value(keys...)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]RawRecord, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			items = append(items, RawRecord(m))
		}
	}
	return items
}

// Псевдонимы доменных полей, общие для движка и обоих адаптеров хранения.
var (
	ownerRefAliases  = []string{"userId", "user", "ownerId", "uid"}
	orderIDAliases   = []string{"id", "ref", "reference", "_id"}
	ledgerIDAliases  = []string{"id", "_id", "txId"}
	ledgerRefAliases = []string{"ref", "reference", "orderRef", "order"}
)

// OwnerRef возвращает ссылку на владельца записи в любом из её написаний.
func (r RawRecord) OwnerRef() string {
	return r.FirstString(ownerRefAliases...)
}

// HasOwnerRef сообщает, есть ли у записи ссылка на владельца вообще.
// Легаси-записи, созданные до появления связи с пользователем, её не имеют.
func (r RawRecord) HasOwnerRef() bool {
	return r.Has(ownerRefAliases...)
}

// Student возвращает текстовое поле владельца легаси-записи.
func (r RawRecord) Student() string {
	return r.FirstString("student")
}

// OrderID возвращает идентификатор записи заказа.
func (r RawRecord) OrderID() string {
	return r.FirstString(orderIDAliases...)
}

// LedgerID возвращает идентификатор записи журнала.
func (r RawRecord) LedgerID() string {
	return r.FirstString(ledgerIDAliases...)
}

// OrderRef возвращает ссылку записи журнала на заказ.
func (r RawRecord) OrderRef() string {
	return r.FirstString(ledgerRefAliases...)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any:
		// Экспорт из документного хранилища заворачивает нативный
		// идентификатор в объект {"$oid": "..."}.
		if oid, ok := t["$oid"].(string); ok {
			return strings.TrimSpace(oid)
		}
		return ""
	default:
		return ""
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}
