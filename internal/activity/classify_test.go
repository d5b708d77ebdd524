package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nmalakhov/canteen-activity/internal/model"
)

func classifyRaw(t *testing.T, rec model.RawRecord, role Role) model.ActivityEntry {
	t.Helper()
	entry := Normalize(rec, role, time.Now())
	Classify(&entry, rec, role)
	return entry
}

func TestClassify_OrdersAlwaysDebit(t *testing.T) {
	entry := classifyRaw(t, model.RawRecord{"id": "RES-1", "total": float64(150)}, RoleOrder)

	assert.Equal(t, model.KindOrder, entry.Kind)
	assert.Equal(t, model.DirectionDebit, entry.Direction)
	assert.Equal(t, -1, entry.Sign)
}

func TestClassify_LedgerRules(t *testing.T) {
	tests := []struct {
		name          string
		rec           model.RawRecord
		wantKind      model.Kind
		wantDirection model.Direction
	}{
		{
			name:          "topup by type string",
			rec:           model.RawRecord{"type": "Topup", "amount": float64(500)},
			wantKind:      model.KindTopup,
			wantDirection: model.DirectionCredit,
		},
		{
			name:          "topup by hyphenated type",
			rec:           model.RawRecord{"kind": "wallet top-up", "amount": float64(500)},
			wantKind:      model.KindTopup,
			wantDirection: model.DirectionCredit,
		},
		{
			name:          "topup by foreign key beats negative amount",
			rec:           model.RawRecord{"topupId": float64(7), "amount": float64(-500)},
			wantKind:      model.KindTopup,
			wantDirection: model.DirectionCredit,
		},
		{
			name:          "explicit direction field",
			rec:           model.RawRecord{"type": "manual", "direction": "debit", "amount": float64(40)},
			wantKind:      model.KindOrder,
			wantDirection: model.DirectionDebit,
		},
		{
			name:          "negative amount means debit",
			rec:           model.RawRecord{"type": "manual", "amount": float64(-40)},
			wantKind:      model.KindOrder,
			wantDirection: model.DirectionDebit,
		},
		{
			name:          "positive amount means credit",
			rec:           model.RawRecord{"type": "manual", "amount": float64(40)},
			wantKind:      model.KindOrder,
			wantDirection: model.DirectionCredit,
		},
		{
			name:          "no signals at all",
			rec:           model.RawRecord{},
			wantKind:      model.KindOrder,
			wantDirection: model.DirectionCredit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := classifyRaw(t, tt.rec, RoleLedger)

			assert.Equal(t, tt.wantKind, entry.Kind)
			assert.Equal(t, tt.wantDirection, entry.Direction)
			assert.Equal(t, tt.wantDirection.Sign(), entry.Sign, "direction and sign must agree")
			assert.False(t, entry.Amount.IsNegative(), "amount is always absolute")
		})
	}
}

func TestIsTopup(t *testing.T) {
	tests := []struct {
		name string
		rec  model.RawRecord
		want bool
	}{
		{name: "type contains topup", rec: model.RawRecord{"type": "TOPUP"}, want: true},
		{name: "type contains top-", rec: model.RawRecord{"type": "Top-Up credit"}, want: true},
		{name: "foreign key present", rec: model.RawRecord{"topupId": float64(7)}, want: true},
		{name: "foreign key null", rec: model.RawRecord{"topupId": nil, "type": "manual"}, want: false},
		{name: "plain manual entry", rec: model.RawRecord{"type": "correction"}, want: false},
		{name: "empty record", rec: model.RawRecord{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTopup(tt.rec))
		})
	}
}
