package activity

import (
	"testing"

	"github.com/nmalakhov/canteen-activity/internal/model"
)

var janeUser = model.User{
	ID:       "U1",
	NativeID: "656a0001",
	Name:     "Jane Doe",
	Email:    "jane@example.com",
}

func TestOwnsOrder_ExactMatch(t *testing.T) {
	tests := []struct {
		name string
		rec  model.RawRecord
		want bool
	}{
		{name: "plain id via userId", rec: model.RawRecord{"userId": "U1"}, want: true},
		{name: "plain id via uid alias", rec: model.RawRecord{"uid": "U1"}, want: true},
		{name: "native id", rec: model.RawRecord{"userId": "656a0001"}, want: true},
		{name: "other user", rec: model.RawRecord{"userId": "U2"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnsOrder(janeUser, tt.rec); got != tt.want {
				t.Fatalf("OwnsOrder = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOwnsOrder_LegacyTier(t *testing.T) {
	tests := []struct {
		name string
		rec  model.RawRecord
		want bool
	}{
		{name: "legacy by name", rec: model.RawRecord{"student": "Jane Doe"}, want: true},
		{name: "legacy name is case-insensitive", rec: model.RawRecord{"student": "  jane doe "}, want: true},
		{name: "legacy by email", rec: model.RawRecord{"student": "JANE@example.com"}, want: true},
		{name: "someone else's legacy record", rec: model.RawRecord{"student": "John Roe"}, want: false},
		{name: "no owner signals at all", rec: model.RawRecord{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnsOrder(janeUser, tt.rec); got != tt.want {
				t.Fatalf("OwnsOrder = %v, want %v", got, tt.want)
			}
		})
	}
}

// Запись с несовпадающей ссылкой на владельца чужая, даже если текстовое
// поле совпадает с именем пользователя: легаси-ярус применяется только к
// записям вообще без ссылки.
func TestOwnsOrder_MismatchedRefNeverFallsBackToLegacy(t *testing.T) {
	rec := model.RawRecord{"userId": "U2", "student": "Jane Doe"}

	if OwnsOrder(janeUser, rec) {
		t.Fatalf("record owned by another user must not match via legacy name")
	}
}

func TestOwnsLedger(t *testing.T) {
	owned := map[string]struct{}{"RES-1": {}}

	tests := []struct {
		name string
		rec  model.RawRecord
		want bool
	}{
		{name: "direct user reference", rec: model.RawRecord{"userId": "U1"}, want: true},
		{name: "native user reference", rec: model.RawRecord{"ownerId": "656a0001"}, want: true},
		{name: "inherited through owned order", rec: model.RawRecord{"ref": "RES-1"}, want: true},
		{name: "reference to foreign order", rec: model.RawRecord{"ref": "RES-7"}, want: false},
		{name: "case-mismatched reference is not ownership", rec: model.RawRecord{"ref": "res-1"}, want: false},
		{name: "no legacy tier for ledger", rec: model.RawRecord{"student": "Jane Doe"}, want: false},
		{name: "other user with foreign ref", rec: model.RawRecord{"userId": "U2", "ref": "RES-7"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnsLedger(janeUser, tt.rec, owned); got != tt.want {
				t.Fatalf("OwnsLedger = %v, want %v", got, tt.want)
			}
		})
	}
}
