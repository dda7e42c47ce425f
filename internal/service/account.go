// Package service orchestrates the account lifecycle: signup, login,
// password change and reset, email verification and role-gated user
// management. It composes the credential/token logic from internal/auth
// with the persistence collaborator behind the Store interface.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/avelkov/user-auth-service/internal/auth"
	"github.com/avelkov/user-auth-service/internal/model"
	"github.com/avelkov/user-auth-service/internal/repository"
)

// Store is the persistence collaborator: a document-style store keyed by
// account id with exact-match email lookup. internal/repository implements
// it on MySQL; tests substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	UpdateProfile(ctx context.Context, id uint64, p model.Profile) error
	UpdateEmail(ctx context.Context, a *model.Account) error
	UpdateRole(ctx context.Context, id uint64, role string) error
	UpdateCredential(ctx context.Context, a *model.Account) error
	RotateCredentialIfReset(ctx context.Context, a *model.Account, prevReset string) error
	ConsumeVerification(ctx context.Context, id uint64, prevToken, newToken string) error
	Delete(ctx context.Context, id uint64) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Mailer delivers one-time-token links. Delivery is fire-and-forget; the
// core never waits on it and never fails an operation because of it.
type Mailer interface {
	PublishVerification(ctx context.Context, recipient, token string) error
	PublishReset(ctx context.Context, recipient, token string) error
}

// mailTimeout bounds a single fire-and-forget publish so a dead broker
// cannot pile up goroutines.
const mailTimeout = 10 * time.Second

// AuthPayload is returned by signup and login.
type AuthPayload struct {
	ID     uint64 `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Token  string `json:"token"`
	Expire int64  `json:"expire"` // session lifetime in seconds
}

// Accounts is the account lifecycle manager.
type Accounts struct {
	store  Store
	hasher *auth.Hasher
	issuer *auth.Issuer
	mailer Mailer // nil disables outbound mail
}

func NewAccounts(store Store, hasher *auth.Hasher, issuer *auth.Issuer, mailer Mailer) *Accounts {
	return &Accounts{store: store, hasher: hasher, issuer: issuer, mailer: mailer}
}

// Signup creates an account and returns its auth payload. The account
// starts unverified with role "user"; a verification mail is dispatched
// asynchronously.
func (s *Accounts) Signup(ctx context.Context, email, password, password2 string) (AuthPayload, error) {
	if password != password2 {
		return AuthPayload{}, ErrPasswordMismatch
	}
	if err := auth.CheckPassword(password); err != nil {
		return AuthPayload{}, err
	}

	a := &model.Account{Role: model.RoleUser}
	if err := s.hasher.SetPassword(a, password); err != nil {
		return AuthPayload{}, err
	}
	if err := auth.SetEmail(a, email); err != nil {
		return AuthPayload{}, err
	}

	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return AuthPayload{}, ErrEmailTaken
		}
		return AuthPayload{}, err
	}

	s.sendVerification(a)
	return s.authPayload(a)
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Accounts) Login(ctx context.Context, email, password string) (AuthPayload, error) {
	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthPayload{}, ErrInvalidCredentials
		}
		return AuthPayload{}, err
	}
	if !s.hasher.ValidatePassword(&a, password) {
		return AuthPayload{}, ErrInvalidCredentials
	}
	return s.authPayload(&a)
}

// ChangePassword rotates the credential of the target account. The target
// is the actor itself unless an elevated actor names another account, in
// which case the old-password check is skipped.
func (s *Accounts) ChangePassword(ctx context.Context, actorID uint64, actorRole string, targetID uint64, oldPassword, password, password2 string) error {
	self := targetID == 0 || targetID == actorID
	if self {
		targetID = actorID
	} else if actorRole != model.RoleAdmin {
		return ErrForbidden
	}

	a, err := s.store.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if self && !s.hasher.ValidatePassword(&a, oldPassword) {
		return ErrInvalidCredentials
	}
	if password != password2 {
		return ErrPasswordMismatch
	}
	if err := auth.CheckPassword(password); err != nil {
		return err
	}
	if err := s.hasher.SetPassword(&a, password); err != nil {
		return err
	}
	return s.store.UpdateCredential(ctx, &a)
}

// RequestPasswordReset issues a reset token scoped to the account's current
// stored reset value and dispatches it by mail.
func (s *Accounts) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	token, err := s.issuer.IssueReset(&a)
	if err != nil {
		return err
	}
	if s.mailer != nil {
		go func(recipient, token string) {
			ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
			defer cancel()
			if err := s.mailer.PublishReset(ctx, recipient, token); err != nil {
				log.Printf("mailer: reset publish failed: %v", err)
			}
		}(a.Email, token)
	}
	return nil
}

// CompletePasswordReset consumes a reset token. The token is single-use:
// the new credential is written with a compare-and-rotate on the stored
// reset token, so a replay (or a raced duplicate) fails with
// ErrResetLinkExpired.
func (s *Accounts) CompletePasswordReset(ctx context.Context, rawToken, password, password2 string) error {
	claims, err := s.issuer.VerifyReset(rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return ErrResetLinkExpired
		}
		return err
	}

	a, err := s.store.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetLinkExpired
		}
		return err
	}
	// Cheap pre-check before the KDF runs; the authoritative check is the
	// conditional UPDATE below.
	if claims.ResetToken != a.Credential.ResetToken {
		return ErrResetLinkExpired
	}

	if password != password2 {
		return ErrPasswordMismatch
	}
	if err := auth.CheckPassword(password); err != nil {
		return err
	}

	prev := a.Credential.ResetToken
	if err := s.hasher.SetPassword(&a, password); err != nil {
		return err
	}
	if err := s.store.RotateCredentialIfReset(ctx, &a, prev); err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			return ErrResetLinkExpired
		}
		return err
	}
	return nil
}

// VerifyEmail consumes a verification token, marking the account verified.
// Success rotates the stored verification token so earlier links die.
func (s *Accounts) VerifyEmail(ctx context.Context, rawToken string) error {
	claims, err := s.issuer.VerifyVerification(rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return ErrVerificationLinkExpired
		}
		return err
	}

	a, err := s.store.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationLinkExpired
		}
		return err
	}
	if claims.VerificationToken != a.Credential.VerificationToken {
		return ErrVerificationLinkExpired
	}
	if a.Verified {
		return ErrAlreadyVerified
	}

	next, err := auth.NewOneTimeToken()
	if err != nil {
		return err
	}
	if err := s.store.ConsumeVerification(ctx, a.ID, claims.VerificationToken, next); err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			return ErrVerificationLinkExpired
		}
		return err
	}
	return nil
}

// Get returns a single account by id.
func (s *Accounts) Get(ctx context.Context, id uint64) (model.Account, error) {
	a, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Account{}, ErrNotFound
	}
	return a, err
}

// List returns all accounts. Callers gate this behind the elevated role.
func (s *Accounts) List(ctx context.Context) ([]model.Account, error) {
	return s.store.List(ctx)
}

// UpdateRequest carries the mutable fields of an update call. Zero values
// leave the corresponding field untouched.
type UpdateRequest struct {
	ID    uint64 // target account; 0 means the actor itself
	Name  string
	Phone string
	Email string
	Role  string
}

// Update applies profile, email and role changes. Only an elevated actor
// may touch another account or assign roles; an email change restarts the
// verification cycle and mails a fresh verification link.
func (s *Accounts) Update(ctx context.Context, actorID uint64, actorRole string, req UpdateRequest) error {
	targetID := actorID
	if req.ID != 0 && req.ID != actorID {
		if actorRole != model.RoleAdmin {
			return ErrForbidden
		}
		targetID = req.ID
	}

	a, err := s.store.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if req.Role != "" && req.Role != a.Role {
		if actorRole != model.RoleAdmin {
			return ErrForbidden
		}
		if !model.ValidRole(req.Role) {
			return ErrInvalidRole
		}
		if err := s.store.UpdateRole(ctx, targetID, req.Role); err != nil {
			return err
		}
	}

	if req.Email != "" && req.Email != a.Email {
		if err := auth.SetEmail(&a, req.Email); err != nil {
			return err
		}
		if err := s.store.UpdateEmail(ctx, &a); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return ErrEmailTaken
			}
			return err
		}
		s.sendVerification(&a)
	}

	if req.Name != "" {
		a.Profile.Name = req.Name
	}
	if req.Phone != "" {
		a.Profile.Phone = req.Phone
	}
	return s.store.UpdateProfile(ctx, targetID, a.Profile)
}

// Delete removes an account. Elevated actors only; there is no soft delete.
func (s *Accounts) Delete(ctx context.Context, actorRole string, id uint64) error {
	if actorRole != model.RoleAdmin {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// EmailExists reports whether an account with the email exists.
func (s *Accounts) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.store.EmailExists(ctx, email)
}

func (s *Accounts) authPayload(a *model.Account) (AuthPayload, error) {
	token, err := s.issuer.IssueSession(a)
	if err != nil {
		return AuthPayload{}, err
	}
	return AuthPayload{
		ID:     a.ID,
		Email:  a.Email,
		Role:   a.Role,
		Token:  token,
		Expire: int64(s.issuer.SessionTTL() / time.Second),
	}, nil
}

// sendVerification mails a verification link without blocking the caller.
func (s *Accounts) sendVerification(a *model.Account) {
	if s.mailer == nil {
		return
	}
	token, err := s.issuer.IssueVerification(a)
	if err != nil {
		log.Printf("mailer: issue verification token failed: %v", err)
		return
	}
	go func(recipient, token string) {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.mailer.PublishVerification(ctx, recipient, token); err != nil {
			log.Printf("mailer: verification publish failed: %v", err)
		}
	}(a.Email, token)
}
