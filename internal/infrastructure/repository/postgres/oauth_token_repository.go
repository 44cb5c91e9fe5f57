package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/oauthtoken"
	qb "github.com/riskibarqy/fantasy-hoops/internal/platform/querybuilder"
)

type oauthTokenTableModel struct {
	UserID      string       `db:"user_id"`
	Provider    string       `db:"provider"`
	AccessToken string       `db:"access_token"`
	ExpiresAt   sql.NullTime `db:"expires_at"`
}

// OAuthTokenRepository reads tokens written by the account service.
type OAuthTokenRepository struct {
	db *sqlx.DB
}

func NewOAuthTokenRepository(db *sqlx.DB) *OAuthTokenRepository {
	return &OAuthTokenRepository{db: db}
}

func (r *OAuthTokenRepository) GetByUser(ctx context.Context, userID, provider string) (oauthtoken.Token, bool, error) {
	query, args, err := qb.Select(qb.Columns(oauthTokenTableModel{})...).
		From("oauth_tokens").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("provider", provider),
		).
		ToSQL()
	if err != nil {
		return oauthtoken.Token{}, false, fmt.Errorf("build get oauth token query: %w", err)
	}

	var row oauthTokenTableModel
	err = retryStatement(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return oauthtoken.Token{}, false, nil
		}
		return oauthtoken.Token{}, false, fmt.Errorf("get oauth token: %w", err)
	}

	return oauthtoken.Token{
		UserID:      row.UserID,
		Provider:    row.Provider,
		AccessToken: row.AccessToken,
		ExpiresAt:   fromNullTime(row.ExpiresAt),
	}, true, nil
}
