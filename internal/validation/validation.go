// Package validation содержит правила проверки заявки на пожертвование.
package validation

import (
	"errors"
	"math"

	"github.com/mmeshcher/donation-ledger/internal/catalog"
	"github.com/mmeshcher/donation-ledger/internal/model"
)

// ErrUnauthenticated возвращается при попытке пожертвования без сессии.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnknownCategory возвращается, если категория не найдена в справочнике.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidAmount возвращается, если сумма не является конечным положительным числом.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrBelowMinimum возвращается, если сумма меньше минимума категории.
	ErrBelowMinimum = errors.New("amount below category minimum")
	// ErrInvalidPaymentMethod возвращается при неизвестном способе оплаты.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// Validate проверяет заявку по правилам в фиксированном порядке и
// возвращает первую нарушенную. Функция чистая: при одинаковом
// справочнике и входных данных вердикт всегда одинаков.
func Validate(cat *catalog.Catalog, identity string, req model.DonationRequest) (*model.ValidatedDonation, error) {
	if identity == "" {
		return nil, ErrUnauthenticated
	}

	category, ok := cat.Get(req.CategoryID)
	if !ok {
		return nil, ErrUnknownCategory
	}

	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, ErrInvalidAmount
	}

	if req.Amount < category.MinAmount {
		return nil, ErrBelowMinimum
	}

	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	return &model.ValidatedDonation{
		CategoryTitle: category.Title,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}, nil
}
