package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/ports/repository"
)

const (
	membershipIDChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	membershipIDLength   = 8
	membershipIDAttempts = 100
)

// generateMembershipID returns a random display identifier such as "K7Q2M9XA".
func generateMembershipID() (string, error) {
	buffer := make([]byte, membershipIDLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = membershipIDChars[int(buffer[i])%len(membershipIDChars)]
	}
	return string(buffer), nil
}

// uniqueMembershipID retries generation until an unused id is found.
func uniqueMembershipID(ctx context.Context, users repository.UserRepository, tx repository.Tx) (string, error) {
	for i := 0; i < membershipIDAttempts; i++ {
		id, err := generateMembershipID()
		if err != nil {
			return "", err
		}
		exists, err := users.MembershipIDExists(ctx, tx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique membership id", domain.ErrConflict)
}
