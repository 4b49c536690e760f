// Package handler содержит HTTP-обработчики API сервиса пожертвований.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/donation-ledger/internal/middleware"
	"github.com/mmeshcher/donation-ledger/internal/model"
	"github.com/mmeshcher/donation-ledger/internal/repository"
	"github.com/mmeshcher/donation-ledger/internal/service"
	"github.com/mmeshcher/donation-ledger/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password string) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (string, error)
	Categories() []model.Category
	SubmitDonation(ctx context.Context, identity string, req model.DonationRequest) service.SubmissionResult
	GetDonationsByUser(ctx context.Context, identity string) ([]model.DonationRecord, error)
	GetAcknowledgmentsByUser(ctx context.Context, identity string) ([]model.AcknowledgmentRecord, error)
}

// Handler реализует HTTP-обработчики API сервиса пожертвований.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.RegisterUser(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Email)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	identity, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, identity)
	w.WriteHeader(http.StatusOK)
}

// GetCategories возвращает справочник категорий в порядке отображения.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.service.Categories()); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type donationResponse struct {
	ID            string  `json:"id"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

type rejectionResponse struct {
	Reason string `json:"reason"`
}

// SubmitDonation принимает заявку на пожертвование от текущего пользователя.
func (h *Handler) SubmitDonation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req model.DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res := h.service.SubmitDonation(r.Context(), identity, req)

	switch res.State {
	case model.SubmissionStateConfirmed:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(newDonationResponse(res.Record)); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

	case model.SubmissionStateRejected:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(rejectionResponse{Reason: rejectionReason(res.Err)})

	default:
		if errors.Is(res.Err, service.ErrSubmissionInFlight) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("submit donation error", zap.String("identity", identity), zap.Error(res.Err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}

func newDonationResponse(rec *model.DonationRecord) donationResponse {
	return donationResponse{
		ID:            rec.ID,
		Category:      rec.Category,
		Amount:        rec.Amount,
		PaymentMethod: string(rec.PaymentMethod),
		TransactionID: rec.TransactionID,
		Status:        string(rec.Status),
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, validation.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, validation.ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, validation.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, validation.ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, validation.ErrInvalidPaymentMethod):
		return "invalid_payment_method"
	}
	return "rejected"
}

// GetDonations возвращает историю пожертвований текущего пользователя.
func (h *Handler) GetDonations(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	donations, err := h.service.GetDonationsByUser(r.Context(), identity)
	if err != nil {
		h.logger.Error("get donations error", zap.String("identity", identity), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(donations) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]donationResponse, 0, len(donations))
	for i := range donations {
		resp = append(resp, newDonationResponse(&donations[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type acknowledgmentResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// GetNotifications возвращает уведомления текущего пользователя.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	acks, err := h.service.GetAcknowledgmentsByUser(r.Context(), identity)
	if err != nil {
		h.logger.Error("get notifications error", zap.String("identity", identity), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(acks) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]acknowledgmentResponse, 0, len(acks))
	for _, a := range acks {
		resp = append(resp, acknowledgmentResponse{
			ID:        a.ID,
			Title:     a.Title,
			Message:   a.Message,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}
