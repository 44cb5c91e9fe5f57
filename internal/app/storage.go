package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/fantasy-hoops/internal/config"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/oauthtoken"
	"github.com/riskibarqy/fantasy-hoops/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/fantasy-hoops/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fantasy-hoops/internal/infrastructure/repository/postgres"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const dbPingTimeout = 5 * time.Second

type repositories struct {
	leagues league.Repository
	runs    leaguesync.Repository
	tokens  oauthtoken.Repository
}

func (a *App) openStorage(ctx context.Context) (repositories, error) {
	var repos repositories

	switch a.cfg.StorageBackend {
	case config.StorageBackendMemory:
		repos = repositories{
			leagues: memory.NewLeagueRepository(nil),
			runs:    memory.NewLeagueSyncRunRepository(),
			tokens:  memory.NewOAuthTokenRepository(staticYahooTokens(a.cfg.StaticYahooTokens)),
		}
		a.logger.Warn("using in-memory storage; leagues and sync runs are lost on restart",
			"static_tokens", len(a.cfg.StaticYahooTokens))
	case config.StorageBackendPostgres:
		db, err := openPostgres(ctx, a.cfg)
		if err != nil {
			return repositories{}, err
		}
		a.closers = append(a.closers, db.Close)
		repos = repositories{
			leagues: postgres.NewLeagueRepository(db),
			runs:    postgres.NewLeagueSyncRunRepository(db),
			tokens:  postgres.NewOAuthTokenRepository(db),
		}
	default:
		return repositories{}, fmt.Errorf("unsupported storage backend %q", a.cfg.StorageBackend)
	}

	if a.cfg.CacheEnabled {
		repos.leagues = cache.NewLeagueRepository(repos.leagues, a.cfg.CacheTTL)
	}
	return repos, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	opts := []otelsql.Option{
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(dsn); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// staticYahooTokens turns a user_id -> token map into non-expiring seed tokens, in user order.
func staticYahooTokens(byUser map[string]string) []oauthtoken.Token {
	tokens := make([]oauthtoken.Token, 0, len(byUser))
	for userID, accessToken := range byUser {
		tokens = append(tokens, oauthtoken.Token{
			UserID:      userID,
			Provider:    oauthtoken.ProviderYahoo,
			AccessToken: accessToken,
		})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].UserID < tokens[j].UserID })
	return tokens
}
