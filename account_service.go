package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const serviceTimeout = 10 * time.Second

// RegistrationInput carries the fields accepted at registration. Role is
// not accepted from callers; every new account starts as RoleUser.
type RegistrationInput struct {
	FirstName  string
	MiddleName string
	LastName   string
	Username   string
	Email      string
	Password   string
}

// AccountService orchestrates user lookup, creation, and mutation against
// storage, using the credential hasher for password handling.
type AccountService struct {
	repo   RepositoryManager
	logger Logger
}

// NewAccountService builds an AccountService.
func NewAccountService(repo RepositoryManager, logger Logger) *AccountService {
	if logger == nil {
		logger = defLogger{}
	}
	return &AccountService{
		repo:   repo,
		logger: logger,
	}
}

// FindByEmail loads a user by email.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	return s.repo.Users().GetByEmail(ctx, email)
}

// FindByID loads a user by id.
func (s *AccountService) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	return s.repo.Users().GetByID(ctx, id)
}

// EmailExists reports whether the email is already registered without
// exposing the full record.
func (s *AccountService) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	return s.repo.Users().EmailExists(ctx, email)
}

// UsernameExists reports whether the username is already registered.
func (s *AccountService) UsernameExists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	return s.repo.Users().UsernameExists(ctx, username)
}

// CreateUser registers a new account. The existence checks are a fast
// path; the storage unique constraints remain the final authority under
// concurrent registration, and their violation surfaces as the same
// conflict errors.
func (s *AccountService) CreateUser(ctx context.Context, input RegistrationInput) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	if taken, err := s.repo.Users().EmailExists(ctx, input.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}

	username := getUsername(input.Username, input.Email)
	if taken, err := s.repo.Users().UsernameExists(ctx, username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid password provided")
	}

	user := &User{
		FirstName:    input.FirstName,
		MiddleName:   input.MiddleName,
		LastName:     input.LastName,
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		Role:         RoleUser,
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = s.repo.Users().CreateTx(ctx, tx, user)
		return err
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

// VerifyCredentials authenticates an email/password pair. Unknown emails
// and wrong passwords are indistinguishable to the caller; an unverified
// account fails with its own error after the password check so the
// response never leaks whether the password was right.
func (s *AccountService) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "password comparison failed")
	}

	if !user.IsVerified {
		return nil, ErrAccountNotVerified
	}

	return user, nil
}

// MarkVerified flips the verification flag for the given email. The
// mutation is idempotent, so replaying a still-valid verification link
// re-applies the same state.
func (s *AccountService) MarkVerified(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	verified := true
	return s.repo.Users().Update(ctx, user.UID, UserPatch{IsVerified: &verified})
}

// UpdateUser applies a typed partial update.
func (s *AccountService) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	return s.repo.Users().Update(ctx, id, patch)
}

// ResetPassword replaces the stored hash for the given email.
func (s *AccountService) ResetPassword(ctx context.Context, email, newPassword string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid password provided")
	}

	return s.repo.Users().Update(ctx, user.UID, UserPatch{PasswordHash: &hash})
}

// PasswordFingerprint binds a reset link to the hash it was issued
// against: once the password changes, outstanding links stop matching and
// the link is effectively single-use.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:6])
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
