// Package model содержит доменные сущности сервиса активности столовой.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind описывает вид записи активности: заказ или пополнение кошелька.
type Kind string

const (
	KindOrder Kind = "ORDER"
	KindTopup Kind = "TOPUP"
)

// Direction описывает направление движения средств.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Sign возвращает числовой знак направления: -1 для списания, +1 для зачисления.
func (d Direction) Sign() int {
	if d == DirectionDebit {
		return -1
	}
	return 1
}

// ActivityEntry — каноническое представление одного события в истории
// кошелька пользователя. Единственная сущность, которую порождает сервис:
// записи собираются заново при каждом запросе и нигде не сохраняются.
type ActivityEntry struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	CreatedAt        time.Time       `json:"created_at"`
	Status           string          `json:"status"`
	StatusNormalized string          `json:"status_normalized"`
	Kind             Kind            `json:"kind"`
	Direction        Direction       `json:"direction"`
	Sign             int             `json:"sign"`
	Amount           decimal.Decimal `json:"amount"`

	// SourceRecord — исходная запись хранилища без изменений,
	// сохраняется для диагностики на стороне потребителя.
	SourceRecord RawRecord `json:"source_record,omitempty"`
}

// User представляет профиль пользователя из справочника.
// NativeID — идентификатор документа в нативном формате хранилища,
// может отсутствовать для записей из файлового снапшота.
type User struct {
	ID       string
	NativeID string
	Name     string
	Email    string
}

// StorageMode определяет активный бэкенд хранения для одного запроса.
type StorageMode string

const (
	StorageModeDocument StorageMode = "document"
	StorageModeSnapshot StorageMode = "snapshot"
)
