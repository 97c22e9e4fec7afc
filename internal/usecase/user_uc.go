package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase covers member accounts: signup, login and profile management.
type UserUseCase interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Get(ctx context.Context, caller model.Caller, id string) (*model.User, error)
	List(ctx context.Context, caller model.Caller) ([]*model.User, error)
	Update(ctx context.Context, caller model.Caller, id string, in UserUpdate) (*model.User, error)
	// GenerateMembershipIDs backfills ids for users that have none and
	// reports how many were assigned.
	GenerateMembershipIDs(ctx context.Context, caller model.Caller) (int, error)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Gender   string `json:"gender"`
}

// UserUpdate is a partial profile update; nil fields are left unchanged.
// Email, MembershipID and Role are admin-only.
type UserUpdate struct {
	Name         *string     `json:"name"`
	Phone        *string     `json:"phone"`
	Address      *string     `json:"address"`
	Gender       *string     `json:"gender"`
	Email        *string     `json:"email"`
	MembershipID *string     `json:"membershipId"`
	Role         *model.Role `json:"role"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthPolicy throttles login attempts per email.
type AuthPolicy struct {
	LoginRateLimit int64
	RateWindow     time.Duration
}

const (
	minPasswordLength    = 6
	membershipBackfillLk = "lock:membership-id-backfill"
)

type userUC struct {
	users   repository.UserRepository
	tm      repository.TransactionManager
	tokens  adapter.TokenIssuer
	limiter adapter.RateLimiter
	locker  adapter.Locker
	policy  AuthPolicy
	log     *zerolog.Logger
}

func NewUserUseCase(
	users repository.UserRepository,
	tm repository.TransactionManager,
	tokens adapter.TokenIssuer,
	limiter adapter.RateLimiter,
	locker adapter.Locker,
	policy AuthPolicy,
	logger *zerolog.Logger,
) *userUC {
	return &userUC{
		users:   users,
		tm:      tm,
		tokens:  tokens,
		limiter: limiter,
		locker:  locker,
		policy:  policy,
		log:     logging.Component(logger, "UserUC"),
	}
}

func (u *userUC) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "UserUC.Register")()
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser(uuid.NewString(), in.Name, in.Email, string(hash), model.RoleUser)
	if err != nil {
		return nil, err
	}
	user.Phone = strings.TrimSpace(in.Phone)
	user.Address = strings.TrimSpace(in.Address)
	user.Gender = strings.TrimSpace(in.Gender)

	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.users.FindByEmail(ctx, tx, user.Email); err == nil {
			return fmt.Errorf("%w: user already exists", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		mid, err := uniqueMembershipID(ctx, u.users, tx)
		if err != nil {
			return err
		}
		user.MembershipID = &mid
		return u.users.Save(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncUserRegistered()
	logging.With(ctx, u.log).Info().Str("user_id", user.ID).Str("membership_id", *user.MembershipID).Msg("member registered")
	token, err := u.tokens.Mint(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (u *userUC) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if u.limiter != nil && u.policy.LoginRateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, "rate_limit:login:"+email, u.policy.LoginRateLimit, u.policy.RateWindow)
		if err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncRateLimitTriggered("login")
			return nil, fmt.Errorf("%w: too many login attempts, try again later", domain.ErrRateLimited)
		}
	}

	user, err := u.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		// the client sends unknown accounts to registration
		return nil, notFound(err, "account")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	token, err := u.tokens.Mint(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Debug().Str("user_id", user.ID).Msg("login")
	return &AuthResult{Token: token, User: user}, nil
}

func (u *userUC) Get(ctx context.Context, caller model.Caller, id string) (*model.User, error) {
	if err := requireOwnerOrAdmin(caller, id); err != nil {
		return nil, err
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (u *userUC) List(ctx context.Context, caller model.Caller) ([]*model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return u.users.List(ctx, repository.NoTX)
}

func (u *userUC) Update(ctx context.Context, caller model.Caller, id string, in UserUpdate) (*model.User, error) {
	if err := requireOwnerOrAdmin(caller, id); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && (in.Email != nil || in.MembershipID != nil || in.Role != nil) {
		return nil, fmt.Errorf("%w: only admins can change email, membership id or role", domain.ErrAccessDenied)
	}

	var out *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.FindByID(ctx, tx, id)
		if err != nil {
			return notFound(err, "user")
		}
		if in.Name != nil {
			user.Name = strings.TrimSpace(*in.Name)
		}
		if in.Phone != nil {
			user.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Address != nil {
			user.Address = strings.TrimSpace(*in.Address)
		}
		if in.Gender != nil {
			user.Gender = strings.TrimSpace(*in.Gender)
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.Email != nil {
			email := model.NormalizeEmail(*in.Email)
			if email != user.Email {
				if other, err := u.users.FindByEmail(ctx, tx, email); err == nil && other.ID != user.ID {
					return fmt.Errorf("%w: email is already in use", domain.ErrConflict)
				} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				user.Email = email
			}
		}
		if in.MembershipID != nil {
			mid := strings.ToUpper(strings.TrimSpace(*in.MembershipID))
			if user.MembershipID == nil || *user.MembershipID != mid {
				exists, err := u.users.MembershipIDExists(ctx, tx, mid)
				if err != nil {
					return err
				}
				if exists {
					return fmt.Errorf("%w: membership id is already in use", domain.ErrConflict)
				}
				user.MembershipID = &mid
			}
		}
		if err := user.Validate(); err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, user); err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("user_id", id).Msg("profile updated")
	return out, nil
}

func (u *userUC) GenerateMembershipIDs(ctx context.Context, caller model.Caller) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	token, err := u.locker.TryLock(ctx, membershipBackfillLk, 5*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrLockBusy) {
			return 0, fmt.Errorf("%w: membership id generation is already running", domain.ErrConflict)
		}
		return 0, err
	}
	defer func() {
		if err := u.locker.Unlock(context.Background(), membershipBackfillLk, token); err != nil {
			u.log.Warn().Err(err).Msg("failed to release backfill lock")
		}
	}()

	pending, err := u.users.ListWithoutMembershipID(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	assigned := 0
	for _, user := range pending {
		err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
			mid, err := uniqueMembershipID(ctx, u.users, tx)
			if err != nil {
				return err
			}
			return u.users.SetMembershipID(ctx, tx, user.ID, mid)
		})
		if err != nil {
			logging.With(ctx, u.log).Error().Err(err).Str("user_id", user.ID).Msg("membership id assignment failed")
			return assigned, err
		}
		assigned++
	}
	logging.With(ctx, u.log).Info().Int("assigned", assigned).Msg("membership ids generated")
	return assigned, nil
}
