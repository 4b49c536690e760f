// Package model содержит доменные сущности сервиса пожертвований.
package model

import "time"

// User представляет зарегистрированного жертвователя.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// PaymentMethod описывает способ оплаты пожертвования.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodBank   PaymentMethod = "bank"
)

// Title возвращает отображаемое название способа оплаты.
func (m PaymentMethod) Title() string {
	switch m {
	case PaymentMethodCash:
		return "Cash"
	case PaymentMethodOnline:
		return "Online Wallet"
	case PaymentMethodBank:
		return "Bank Transfer"
	}
	return string(m)
}

// Valid сообщает, входит ли способ оплаты в допустимый набор.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodOnline, PaymentMethodBank:
		return true
	}
	return false
}

// DonationStatus описывает статус записи о пожертвовании.
type DonationStatus string

const (
	DonationStatusSuccess DonationStatus = "success"
	DonationStatusFailed  DonationStatus = "failed"
)

// Category описывает категорию пожертвований с минимальной суммой взноса.
type Category struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	MinAmount   float64 `json:"min_amount"`
	ColorTag    string  `json:"color"`
	IconTag     string  `json:"icon"`
}

// DonationRequest описывает входные данные одной попытки пожертвования.
// Не сохраняется напрямую, потребляется валидатором.
type DonationRequest struct {
	CategoryID    string        `json:"category"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Note          string        `json:"note,omitempty"`
}

// ValidatedDonation содержит проверенные данные пожертвования, готовые к записи в журнал.
type ValidatedDonation struct {
	CategoryTitle string
	Amount        float64
	PaymentMethod PaymentMethod
	Note          string
}

// DonationRecord представляет неизменяемую запись журнала об одном пожертвовании.
type DonationRecord struct {
	ID            string
	UserEmail     string
	Category      string
	Amount        float64
	PaymentMethod PaymentMethod
	TransactionID string
	Status        DonationStatus
	CreatedAt     time.Time
}

// AcknowledgmentRecord представляет уведомление о принятом пожертвовании.
type AcknowledgmentRecord struct {
	ID        string
	UserEmail string
	Title     string
	Message   string
	CreatedAt time.Time
}

// SubmissionState описывает состояние конечного автомата приёма пожертвования.
type SubmissionState string

const (
	SubmissionStateIdle       SubmissionState = "IDLE"
	SubmissionStateValidating SubmissionState = "VALIDATING"
	SubmissionStateRejected   SubmissionState = "REJECTED"
	SubmissionStateSubmitting SubmissionState = "SUBMITTING"
	SubmissionStateConfirmed  SubmissionState = "CONFIRMED"
	SubmissionStateFailed     SubmissionState = "FAILED"
)
