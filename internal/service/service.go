// Package service реализует бизнес-логику сервиса пожертвований.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/donation-ledger/internal/catalog"
	"github.com/mmeshcher/donation-ledger/internal/model"
	"github.com/mmeshcher/donation-ledger/internal/repository"
	"github.com/mmeshcher/donation-ledger/internal/txid"
	"github.com/mmeshcher/donation-ledger/internal/validation"
)

const acknowledgmentTitle = "Payment Confirmed"

// ErrLedgerUnavailable возвращается, если запись пожертвования в журнал не удалась.
var (
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrSubmissionInFlight возвращается при попытке начать второе пожертвование,
	// пока первое ещё обрабатывается.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, email string, passwordHash []byte) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	InsertDonation(ctx context.Context, email string, d *model.ValidatedDonation, transactionID string) (*model.DonationRecord, error)
	GetDonationsByUser(ctx context.Context, email string) ([]model.DonationRecord, error)
	InsertAcknowledgment(ctx context.Context, email, title, message string) (*model.AcknowledgmentRecord, error)
	GetAcknowledgmentsByUser(ctx context.Context, email string) ([]model.AcknowledgmentRecord, error)
	GetDonationsMissingAcknowledgment(ctx context.Context, limit int) ([]model.DonationRecord, error)
}

// SubmissionResult содержит итог обработки одной заявки на пожертвование.
type SubmissionResult struct {
	State  model.SubmissionState
	Record *model.DonationRecord
	Err    error
}

// Service содержит бизнес-логику сервиса пожертвований.
type Service struct {
	repo    Repository
	catalog *catalog.Catalog
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService создаёт новый сервис с указанными репозиторием и справочником категорий.
func NewService(repo Repository, cat *catalog.Catalog, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Categories возвращает категории пожертвований в порядке отображения.
func (s *Service) Categories() []model.Category {
	return s.catalog.List()
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (int64, error) {
	hashed := hashPassword(email, password)
	id, err := s.repo.CreateUser(ctx, email, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет email и пароль пользователя и возвращает его идентичность.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return u.Email, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// SubmitDonation проводит заявку через конечный автомат
// Validating -> {Rejected | Submitting -> {Confirmed | Failed}}.
// На одного пользователя допускается не более одной заявки в обработке.
func (s *Service) SubmitDonation(ctx context.Context, identity string, req model.DonationRequest) SubmissionResult {
	if !s.beginSubmission(identity) {
		return SubmissionResult{
			State: model.SubmissionStateSubmitting,
			Err:   ErrSubmissionInFlight,
		}
	}
	defer s.endSubmission(identity)

	validated, err := validation.Validate(s.catalog, identity, req)
	if err != nil {
		return SubmissionResult{
			State: model.SubmissionStateRejected,
			Err:   err,
		}
	}

	record, err := s.repo.InsertDonation(ctx, identity, validated, txid.New())
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		// Коллизия идентификатора крайне маловероятна; одна повторная
		// попытка со свежим идентификатором её закрывает.
		record, err = s.repo.InsertDonation(ctx, identity, validated, txid.New())
	}
	if err != nil {
		s.logger.Error("ledger write failed",
			zap.String("identity", identity),
			zap.String("category", validated.CategoryTitle),
			zap.Error(err),
		)
		return SubmissionResult{
			State: model.SubmissionStateFailed,
			Err:   fmt.Errorf("%w: %w", ErrLedgerUnavailable, err),
		}
	}

	// Запись уведомления выполняется после подтверждения записи в журнал
	// и не отменяется вместе с запросом: пожертвование уже зафиксировано.
	if err := s.emitAcknowledgment(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("acknowledgment write failed, left for reconciliation",
			zap.String("identity", identity),
			zap.String("transaction_id", record.TransactionID),
			zap.Error(err),
		)
	}

	return SubmissionResult{
		State:  model.SubmissionStateConfirmed,
		Record: record,
	}
}

func (s *Service) beginSubmission(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inflight[identity]; ok {
		return false
	}
	s.inflight[identity] = struct{}{}
	return true
}

func (s *Service) endSubmission(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, identity)
}

func (s *Service) emitAcknowledgment(ctx context.Context, record *model.DonationRecord) error {
	message := acknowledgmentMessage(record)

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := s.repo.InsertAcknowledgment(ctx, record.UserEmail, acknowledgmentTitle, message); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func acknowledgmentMessage(record *model.DonationRecord) string {
	amount := strconv.FormatFloat(record.Amount, 'f', -1, 64)
	return fmt.Sprintf(
		"Your Payment of %s with an amount of Rs. %s using %s as payment Method with TransactionId: %s is confirmed.",
		record.Category, amount, record.PaymentMethod.Title(), record.TransactionID,
	)
}

// GetDonationsByUser возвращает историю пожертвований пользователя, новые первыми.
func (s *Service) GetDonationsByUser(ctx context.Context, identity string) ([]model.DonationRecord, error) {
	return s.repo.GetDonationsByUser(ctx, identity)
}

// GetAcknowledgmentsByUser возвращает уведомления пользователя, новые первыми.
func (s *Service) GetAcknowledgmentsByUser(ctx context.Context, identity string) ([]model.AcknowledgmentRecord, error) {
	return s.repo.GetAcknowledgmentsByUser(ctx, identity)
}

// StartReconciliation запускает фоновый процесс досоздания уведомлений
// для пожертвований, у которых записи уведомления нет.
func (s *Service) StartReconciliation(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reconcileBatch(ctx)
			}
		}
	}()
}

func (s *Service) reconcileBatch(ctx context.Context) {
	missing, err := s.repo.GetDonationsMissingAcknowledgment(ctx, 100)
	if err != nil {
		s.logger.Error("reconciliation scan failed", zap.Error(err))
		return
	}

	for i := range missing {
		record := &missing[i]
		if err := s.emitAcknowledgment(ctx, record); err != nil {
			s.logger.Warn("reconciliation emit failed",
				zap.String("transaction_id", record.TransactionID),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("acknowledgment reconciled",
			zap.String("transaction_id", record.TransactionID),
		)
	}
}
