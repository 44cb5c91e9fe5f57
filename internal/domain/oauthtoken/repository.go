package oauthtoken

import "context"

type Repository interface {
	GetByUser(ctx context.Context, userID, provider string) (Token, bool, error)
}
