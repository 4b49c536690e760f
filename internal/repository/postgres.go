// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/donation-ledger/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateTransaction возвращается при конфликте идентификатора транзакции.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, email string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`,
		email, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// InsertDonation сохраняет запись о пожертвовании и возвращает её с
// присвоенными хранилищем идентификатором и временем создания.
// Сумма хранится в сотых долях (пайсах).
func (r *PostgresRepository) InsertDonation(ctx context.Context, email string, d *model.ValidatedDonation, transactionID string) (*model.DonationRecord, error) {
	id := uuid.New()
	amountCents := int64(math.Round(d.Amount * 100))

	var createdAt time.Time
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO donations (id, user_email, category, amount, payment_method, transaction_id, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING created_at`,
			id, email, d.CategoryTitle, amountCents, string(d.PaymentMethod), transactionID, string(model.DonationStatusSuccess),
		).Scan(&createdAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, transactionID)
		}
		return nil, fmt.Errorf("insert donation: %w", err)
	}

	return &model.DonationRecord{
		ID:            id.String(),
		UserEmail:     email,
		Category:      d.CategoryTitle,
		Amount:        float64(amountCents) / 100,
		PaymentMethod: d.PaymentMethod,
		TransactionID: transactionID,
		Status:        model.DonationStatusSuccess,
		CreatedAt:     createdAt,
	}, nil
}

// GetDonationsByUser возвращает историю пожертвований пользователя, новые первыми.
func (r *PostgresRepository) GetDonationsByUser(ctx context.Context, email string) ([]model.DonationRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_email, category, amount, payment_method, transaction_id, status, created_at
		 FROM donations
		 WHERE user_email = $1
		 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("select donations: %w", err)
	}
	defer rows.Close()

	var res []model.DonationRecord
	for rows.Next() {
		var (
			d           model.DonationRecord
			id          uuid.UUID
			amountCents int64
			method      string
			status      string
		)
		if err := rows.Scan(&id, &d.UserEmail, &d.Category, &amountCents, &method, &d.TransactionID, &status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}

		d.ID = id.String()
		d.Amount = float64(amountCents) / 100
		d.PaymentMethod = model.PaymentMethod(method)
		d.Status = model.DonationStatus(status)

		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// InsertAcknowledgment сохраняет уведомление о принятом пожертвовании.
func (r *PostgresRepository) InsertAcknowledgment(ctx context.Context, email, title, message string) (*model.AcknowledgmentRecord, error) {
	id := uuid.New()

	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO acknowledgments (id, user_email, title, message)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		id, email, title, message,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert acknowledgment: %w", err)
	}

	return &model.AcknowledgmentRecord{
		ID:        id.String(),
		UserEmail: email,
		Title:     title,
		Message:   message,
		CreatedAt: createdAt,
	}, nil
}

// GetAcknowledgmentsByUser возвращает уведомления пользователя, новые первыми.
func (r *PostgresRepository) GetAcknowledgmentsByUser(ctx context.Context, email string) ([]model.AcknowledgmentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_email, title, message, created_at
		 FROM acknowledgments
		 WHERE user_email = $1
		 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("select acknowledgments: %w", err)
	}
	defer rows.Close()

	var res []model.AcknowledgmentRecord
	for rows.Next() {
		var (
			a  model.AcknowledgmentRecord
			id uuid.UUID
		)
		if err := rows.Scan(&id, &a.UserEmail, &a.Title, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan acknowledgment: %w", err)
		}

		a.ID = id.String()
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetDonationsMissingAcknowledgment возвращает пожертвования, для которых
// не найдено парного уведомления. Связь определяется по вхождению
// идентификатора транзакции в текст уведомления того же пользователя.
func (r *PostgresRepository) GetDonationsMissingAcknowledgment(ctx context.Context, limit int) ([]model.DonationRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.user_email, d.category, d.amount, d.payment_method, d.transaction_id, d.status, d.created_at
		 FROM donations d
		 WHERE d.status = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM acknowledgments a
		       WHERE a.user_email = d.user_email
		         AND position(d.transaction_id IN a.message) > 0
		   )
		 ORDER BY d.created_at
		 LIMIT $2`,
		string(model.DonationStatusSuccess), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select donations without acknowledgment: %w", err)
	}
	defer rows.Close()

	var res []model.DonationRecord
	for rows.Next() {
		var (
			d           model.DonationRecord
			id          uuid.UUID
			amountCents int64
			method      string
			status      string
		)
		if err := rows.Scan(&id, &d.UserEmail, &d.Category, &amountCents, &method, &d.TransactionID, &status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}

		d.ID = id.String()
		d.Amount = float64(amountCents) / 100
		d.PaymentMethod = model.PaymentMethod(method)
		d.Status = model.DonationStatus(status)

		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
