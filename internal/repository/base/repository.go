package base

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX общий интерфейс пула и транзакции: репозитории работают с любым из них
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository базовый репозиторий с общими методами
type Repository struct {
	db DBTX
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(db DBTX) Repository {
	return Repository{db: db}
}

// DB возвращает соединение (пул или транзакцию)
func (r Repository) DB() DBTX {
	return r.db
}

// ExecAffected выполняет команду и возвращает количество затронутых строк
func (r Repository) ExecAffected(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// коды ошибок PostgreSQL
const (
	codeLockNotAvailable = "55P03"
	codeUniqueViolation  = "23505"
	codeQueryCanceled    = "57014"
)

// IsLockTimeout ожидание блокировки прервано lock_timeout или statement_timeout
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeLockNotAvailable || pgErr.Code == codeQueryCanceled
	}
	return false
}

// IsUniqueViolation нарушение уникального ограничения
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
