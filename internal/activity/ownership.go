package activity

import (
	"strings"

	"github.com/nmalakhov/canteen-activity/internal/model"
)

// OwnsOrder решает, принадлежит ли запись заказа пользователю.
//
// Двухъярусное правило: сначала точное совпадение ссылки на владельца
// (обычный идентификатор, затем нативный идентификатор документа);
// легаси-ярус по имени или почте применяется только к записям вообще без
// ссылки на владельца. Запись с несовпадающей ссылкой чужая, даже если
// текстовое поле владельца выглядит знакомо — иначе совпадение имён
// отдало бы чужую историю.
func OwnsOrder(user model.User, rec model.RawRecord) bool {
	if rec.HasOwnerRef() {
		ref := rec.OwnerRef()
		if ref == user.ID {
			return true
		}
		return user.NativeID != "" && ref == user.NativeID
	}

	student := canon(rec.Student())
	if student == "" {
		return false
	}
	if name := canon(user.Name); name != "" && student == name {
		return true
	}
	if email := canon(user.Email); email != "" && student == email {
		return true
	}
	return false
}

// OwnsLedger решает, принадлежит ли запись журнала пользователю: прямое
// совпадение ссылки на владельца либо ссылка на уже подтверждённый заказ
// пользователя. Легаси-ярус к журналу не применяется.
//
// Ссылка на заказ сравнивается точно, с учётом регистра. Адаптеры
// добирают кандидатов без учёта регистра, чтобы не потерять запись на
// границе выборки, но принадлежность требует точного совпадения:
// лишние кандидаты отбрасываются здесь.
func OwnsLedger(user model.User, rec model.RawRecord, ownedOrderIDs map[string]struct{}) bool {
	ref := rec.OwnerRef()
	if ref != "" {
		if ref == user.ID {
			return true
		}
		if user.NativeID != "" && ref == user.NativeID {
			return true
		}
	}

	orderRef := rec.OrderRef()
	if orderRef == "" {
		return false
	}
	_, ok := ownedOrderIDs[orderRef]
	return ok
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
