package adapter

import "gym-membership/internal/domain/model"

// TokenIssuer mints bearer tokens for authenticated members.
type TokenIssuer interface {
	Mint(userID string, role model.Role) (string, error)
}
