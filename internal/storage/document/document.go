// Package document реализует доступ к документному хранилищу записей
// (JSONB-коллекции в PostgreSQL).
package document

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nmalakhov/canteen-activity/internal/model"
	"github.com/nmalakhov/canteen-activity/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store предоставляет чтение коллекций orders, ledger_entries и users.
// Сервис активности ничего в них не пишет; записи создают внешние потоки
// заказов и пополнений.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore создаёт подключение к документному хранилищу и инициализирует
// схему коллекций через миграции.
func NewStore(dsn string) (*Store, error) {
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

	s := &Store{pool: pool}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
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

// Close закрывает пул соединений.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping проверяет доступность хранилища. Используется селектором бэкендов
// перед каждым запросом.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

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
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// FindUser возвращает профиль пользователя из коллекции users.
// NativeID — идентификатор строки документа, исторические записи могли
// ссылаться на пользователя именно им.
func (s *Store) FindUser(ctx context.Context, userID string) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_key, id::text, COALESCE(doc->>'name', ''), COALESCE(doc->>'email', '')
		 FROM users
		 WHERE user_key = $1`,
		userID,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.NativeID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return &u, nil
}

// ownerExpr разворачивает псевдонимы ссылки на владельца. Пустая строка
// приравнивается к отсутствующему полю, как в model.RawRecord.Has:
// экспортёры легаси-записей иногда пишут userId: "" вместо null.
const ownerExpr = `COALESCE(
	NULLIF(doc->>'userId', ''),
	NULLIF(doc->>'user', ''),
	NULLIF(doc->>'ownerId', ''),
	NULLIF(doc->>'uid', ''))`

const (
	ordersByRefQuery     = `SELECT doc FROM orders WHERE ` + ownerExpr + ` = ANY($1)`
	ownerlessOrdersQuery = `SELECT doc FROM orders WHERE ` + ownerExpr + ` IS NULL`

	ledgerQuery = `SELECT doc FROM ledger_entries
	 WHERE ` + ownerExpr + ` = ANY($1)
	    OR LOWER(COALESCE(doc->>'ref', doc->>'reference', doc->>'orderRef', doc->>'order')) = ANY($2)`
)

// FetchCandidates выбирает кандидатов по контракту storage.Adapter.
// Два независимых запроса заказов (по явной ссылке и без владельца)
// выполняются параллельно; запрос журнала зависит от набора
// идентификаторов заказов и идёт после них.
func (s *Store) FetchCandidates(ctx context.Context, user model.User) (*storage.Candidates, error) {
	refs := userRefs(user)

	var byRef, ownerless []model.RawRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byRef, err = s.queryDocs(gctx, ordersByRefQuery, refs)
		return err
	})
	g.Go(func() error {
		var err error
		ownerless, err = s.queryDocs(gctx, ownerlessOrdersQuery)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("select order candidates: %w", err)
	}

	orders := append(byRef, ownerless...)

	ledger, err := s.queryDocs(ctx, ledgerQuery, refs, orderIDs(orders))
	if err != nil {
		return nil, fmt.Errorf("select ledger candidates: %w", err)
	}

	return &storage.Candidates{Orders: orders, Ledger: ledger}, nil
}

func (s *Store) queryDocs(ctx context.Context, query string, args ...any) ([]model.RawRecord, error) {
	var docs []model.RawRecord

	err := s.withRetry(ctx, func() error {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		docs = docs[:0]
		for rows.Next() {
			var doc map[string]any
			if err := rows.Scan(&doc); err != nil {
				return fmt.Errorf("scan doc: %w", err)
			}
			docs = append(docs, model.RawRecord(doc))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// userRefs возвращает оба представления идентификатора пользователя,
// по которым исторические записи могли на него ссылаться.
func userRefs(user model.User) []string {
	refs := []string{user.ID}
	if user.NativeID != "" && user.NativeID != user.ID {
		refs = append(refs, user.NativeID)
	}
	return refs
}

// orderIDs собирает идентификаторы заказов-кандидатов в нижнем регистре
// для сопоставления со ссылками журнала.
func orderIDs(orders []model.RawRecord) []string {
	ids := make([]string, 0, len(orders))
	for _, rec := range orders {
		if id := rec.OrderID(); id != "" {
			ids = append(ids, strings.ToLower(id))
		}
	}
	return ids
}
