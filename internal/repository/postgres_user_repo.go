package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/minigate/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, first_name, last_name, username, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.TelegramID, &user.FirstName, &user.LastName, &user.Username, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByTelegramID はTelegram IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, first_name, last_name, username, created_at, updated_at
		 FROM users WHERE telegram_id = $1`,
		telegramID,
	).Scan(&user.ID, &user.TelegramID, &user.FirstName, &user.LastName, &user.Username, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by telegram ID: %w", err)
	}

	return user, nil
}

// UpsertByTelegramID はTelegram IDをキーにユーザーを作成または更新する。
// 同一Telegram IDによる並行リクエストでもtelegram_idのUNIQUE制約により
// 1行に収束し、後勝ちでプロフィールが更新される。
func (r *PostgresUserRepo) UpsertByTelegramID(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (telegram_id, first_name, last_name, username)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (telegram_id) DO UPDATE SET
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     username = EXCLUDED.username,
		     updated_at = now()
		 RETURNING id, telegram_id, first_name, last_name, username, created_at, updated_at`,
		telegramID, firstName, lastName, username,
	).Scan(&user.ID, &user.TelegramID, &user.FirstName, &user.LastName, &user.Username, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
