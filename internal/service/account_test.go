package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avelkov/user-auth-service/internal/auth"
	"github.com/avelkov/user-auth-service/internal/model"
	"github.com/avelkov/user-auth-service/internal/repository"
)

// fakeStore is an in-memory Store with the same compare-and-rotate
// semantics as the MySQL repository.
type fakeStore struct {
	nextID   uint64
	accounts map[uint64]*model.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, accounts: map[uint64]*model.Account{}}
}

func (f *fakeStore) Create(_ context.Context, a *model.Account) error {
	for _, ex := range f.accounts {
		if ex.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return *a, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (model.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return *a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (f *fakeStore) List(_ context.Context) ([]model.Account, error) {
	var out []model.Account
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uint64, p model.Profile) error {
	a, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Profile = p
	return nil
}

func (f *fakeStore) UpdateEmail(_ context.Context, in *model.Account) error {
	a, ok := f.accounts[in.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, ex := range f.accounts {
		if id != in.ID && ex.Email == in.Email {
			return repository.ErrEmailExists
		}
	}
	a.Email = in.Email
	a.Profile.Email = in.Profile.Email
	a.Verified = in.Verified
	a.Credential.VerificationToken = in.Credential.VerificationToken
	a.LastVerifiedEmail = in.LastVerifiedEmail
	return nil
}

func (f *fakeStore) UpdateRole(_ context.Context, id uint64, role string) error {
	a, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Role = role
	return nil
}

func (f *fakeStore) UpdateCredential(_ context.Context, in *model.Account) error {
	a, ok := f.accounts[in.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Credential = in.Credential
	return nil
}

func (f *fakeStore) RotateCredentialIfReset(_ context.Context, in *model.Account, prevReset string) error {
	a, ok := f.accounts[in.ID]
	if !ok || a.Credential.ResetToken != prevReset {
		return repository.ErrTokenMismatch
	}
	a.Credential.Salt = in.Credential.Salt
	a.Credential.Hash = in.Credential.Hash
	a.Credential.ResetToken = in.Credential.ResetToken
	return nil
}

func (f *fakeStore) ConsumeVerification(_ context.Context, id uint64, prevToken, newToken string) error {
	a, ok := f.accounts[id]
	if !ok || a.Verified || a.Credential.VerificationToken != prevToken {
		return repository.ErrTokenMismatch
	}
	a.Verified = true
	a.Credential.VerificationToken = newToken
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uint64) error {
	if _, ok := f.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeStore) EmailExists(_ context.Context, email string) (bool, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func newTestService() (*Accounts, *fakeStore) {
	store := newFakeStore()
	hasher := auth.NewHasher(auth.MinIterations)
	issuer := auth.NewIssuer("test-secret", time.Hour, time.Hour, 24*time.Hour)
	return NewAccounts(store, hasher, issuer, nil), store
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)
	require.NotZero(t, payload.ID)
	require.Equal(t, "test@test.com", payload.Email)
	require.Equal(t, model.RoleUser, payload.Role)
	require.NotEmpty(t, payload.Token)
	require.EqualValues(t, 3600, payload.Expire)

	a := store.accounts[payload.ID]
	require.False(t, a.Verified)
	require.NotEmpty(t, a.Credential.VerificationToken)

	got, err := svc.Login(ctx, "test@test.com", "1aaaBB")
	require.NoError(t, err)
	require.Equal(t, payload.ID, got.ID)
}

func TestSignupDuplicateEmail(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignupPasswordMismatch(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()

	_, err := svc.Signup(context.Background(), "test@test.com", "1aaaBB", "1aaaBC")
	require.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestSignupWeakPassword(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()

	_, err := svc.Signup(context.Background(), "test@test.com", "short", "short")
	var policy *auth.PolicyError
	require.ErrorAs(t, err, &policy)
	require.Contains(t, policy.Failed, auth.RuleMin)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "test@test.com", "wrong1A")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@test.com", "1aaaBB")
	require.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown email must be indistinguishable from wrong password")
}

func TestPasswordResetSingleUse(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "test@test.com"))

	// Mint the token the mail would carry.
	a := *store.accounts[payload.ID]
	token, err := svc.issuer.IssueReset(&a)
	require.NoError(t, err)

	require.NoError(t, svc.CompletePasswordReset(ctx, token, "2bbbCC", "2bbbCC"))

	_, err = svc.Login(ctx, "test@test.com", "2bbbCC")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "test@test.com", "1aaaBB")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Replaying the consumed token fails: the stored reset token rotated.
	err = svc.CompletePasswordReset(ctx, token, "3cccDD", "3cccDD")
	require.ErrorIs(t, err, ErrResetLinkExpired)
}

func TestCompletePasswordResetStaleToken(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	a := *store.accounts[payload.ID]
	token, err := svc.issuer.IssueReset(&a)
	require.NoError(t, err)

	// A password change rotates the stored reset token out from under the
	// outstanding reset link.
	require.NoError(t, svc.ChangePassword(ctx, payload.ID, model.RoleUser, 0,
		"1aaaBB", "2bbbCC", "2bbbCC"))

	err = svc.CompletePasswordReset(ctx, token, "3cccDD", "3cccDD")
	require.ErrorIs(t, err, ErrResetLinkExpired)
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	a := *store.accounts[payload.ID]
	token, err := svc.issuer.IssueVerification(&a)
	require.NoError(t, err)

	require.NoError(t, svc.VerifyEmail(ctx, token))
	require.True(t, store.accounts[payload.ID].Verified)

	// Success rotated the stored token, so the same link is dead.
	err = svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrVerificationLinkExpired)
}

func TestVerifyEmailStaleToken(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	stale := *store.accounts[payload.ID]
	stale.Credential.VerificationToken = "0000000000000000"
	token, err := svc.issuer.IssueVerification(&stale)
	require.NoError(t, err)

	err = svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrVerificationLinkExpired)
	require.False(t, store.accounts[payload.ID].Verified)
}

func TestVerifyEmailAlreadyVerified(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)
	store.accounts[payload.ID].Verified = true

	a := *store.accounts[payload.ID]
	token, err := svc.issuer.IssueVerification(&a)
	require.NoError(t, err)

	err = svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestChangePasswordWrongOld(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, payload.ID, model.RoleUser, 0,
		"wrong1A", "2bbbCC", "2bbbCC")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordOnOtherAccount(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	target, err := svc.Signup(ctx, "target@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)
	actor, err := svc.Signup(ctx, "actor@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	// Plain user may not touch another account.
	err = svc.ChangePassword(ctx, actor.ID, model.RoleUser, target.ID,
		"", "2bbbCC", "2bbbCC")
	require.ErrorIs(t, err, ErrForbidden)

	// Admin may, and without the old password.
	store.accounts[actor.ID].Role = model.RoleAdmin
	err = svc.ChangePassword(ctx, actor.ID, model.RoleAdmin, target.ID,
		"", "2bbbCC", "2bbbCC")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "target@test.com", "2bbbCC")
	require.NoError(t, err)
}

func TestUpdateRoleRestrictions(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	// Self-escalation is forbidden.
	err = svc.Update(ctx, payload.ID, model.RoleUser, UpdateRequest{Role: model.RoleAdmin})
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, model.RoleUser, store.accounts[payload.ID].Role)

	// An admin can assign a role, but not an unknown one.
	admin, err := svc.Signup(ctx, "admin@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)
	store.accounts[admin.ID].Role = model.RoleAdmin

	err = svc.Update(ctx, admin.ID, model.RoleAdmin, UpdateRequest{ID: payload.ID, Role: "root"})
	require.ErrorIs(t, err, ErrInvalidRole)

	err = svc.Update(ctx, admin.ID, model.RoleAdmin, UpdateRequest{ID: payload.ID, Role: model.RoleShopOwner})
	require.NoError(t, err)
	require.Equal(t, model.RoleShopOwner, store.accounts[payload.ID].Role)
}

func TestUpdateEmailRestartsVerification(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)
	store.accounts[payload.ID].Verified = true
	oldToken := store.accounts[payload.ID].Credential.VerificationToken

	err = svc.Update(ctx, payload.ID, model.RoleUser, UpdateRequest{Email: "new@test.com"})
	require.NoError(t, err)

	a := store.accounts[payload.ID]
	require.Equal(t, "new@test.com", a.Email)
	require.False(t, a.Verified)
	require.Equal(t, "test@test.com", a.LastVerifiedEmail)
	require.NotEqual(t, oldToken, a.Credential.VerificationToken)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	t.Parallel()
	svc, store := newTestService()
	ctx := context.Background()

	payload, err := svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	err = svc.Delete(ctx, model.RoleUser, payload.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, model.RoleAdmin, payload.ID))
	require.Empty(t, store.accounts)

	err = svc.Delete(ctx, model.RoleAdmin, payload.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()

	err := svc.RequestPasswordReset(context.Background(), "nobody@test.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEmailExists(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	ctx := context.Background()

	ok, err := svc.EmailExists(ctx, "test@test.com")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Signup(ctx, "test@test.com", "1aaaBB", "1aaaBB")
	require.NoError(t, err)

	ok, err = svc.EmailExists(ctx, "test@test.com")
	require.NoError(t, err)
	require.True(t, ok)
}
