package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/minigate/internal/model"
)

// PostgresPreferenceRepo はPostgreSQLを使用したユーザー設定リポジトリ。
type PostgresPreferenceRepo struct {
	db *sql.DB
}

// NewPostgresPreferenceRepo はPostgresPreferenceRepoを生成する。
func NewPostgresPreferenceRepo(db *sql.DB) *PostgresPreferenceRepo {
	return &PostgresPreferenceRepo{db: db}
}

// FindByUserID は指定ユーザーの設定を取得する。未設定の場合はnilを返す。
func (r *PostgresPreferenceRepo) FindByUserID(ctx context.Context, userID int64) (*model.Preferences, error) {
	prefs := &model.Preferences{}
	err := r.db.QueryRowContext(ctx,
		`SELECT theme_mode, reduced_motion FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&prefs.ThemeMode, &prefs.ReducedMotion)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find preferences: %w", err)
	}

	return prefs, nil
}

// Upsert は指定ユーザーの設定を作成または全置換する。
func (r *PostgresPreferenceRepo) Upsert(ctx context.Context, userID int64, prefs *model.Preferences) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, theme_mode, reduced_motion)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		     theme_mode = EXCLUDED.theme_mode,
		     reduced_motion = EXCLUDED.reduced_motion,
		     updated_at = now()`,
		userID, prefs.ThemeMode, prefs.ReducedMotion,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}

	return nil
}

// compile-time interface check
var _ PreferenceRepository = (*PostgresPreferenceRepo)(nil)
