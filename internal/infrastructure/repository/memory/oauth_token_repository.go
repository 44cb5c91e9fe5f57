package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/oauthtoken"
)

type OAuthTokenRepository struct {
	mu    sync.RWMutex
	items map[string]oauthtoken.Token
}

func NewOAuthTokenRepository(tokens []oauthtoken.Token) *OAuthTokenRepository {
	r := &OAuthTokenRepository{items: make(map[string]oauthtoken.Token, len(tokens))}
	for _, token := range tokens {
		r.items[tokenKey(token.UserID, token.Provider)] = token
	}
	return r
}

func (r *OAuthTokenRepository) GetByUser(_ context.Context, userID, provider string) (oauthtoken.Token, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.items[tokenKey(userID, provider)]
	return token, ok, nil
}

// Put stores a token; the postgres backend has no equivalent because tokens are owned by the account service.
func (r *OAuthTokenRepository) Put(token oauthtoken.Token) {
	r.mu.Lock()
	r.items[tokenKey(token.UserID, token.Provider)] = token
	r.mu.Unlock()
}

func tokenKey(userID, provider string) string {
	return userID + "|" + provider
}
