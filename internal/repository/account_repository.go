package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avelkov/user-auth-service/internal/model"
)

const accountColumns = `id, email, salt, password_hash, reset_token, verification_token,
	verified, last_verified_email, role, profile_name, profile_phone, profile_email,
	created_at, updated_at`

// AccountRepo provides data access for the `accounts` table.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts the account and populates its ID. A duplicate email maps
// to ErrEmailExists.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `INSERT INTO accounts
		(email, salt, password_hash, reset_token, verification_token,
		 verified, last_verified_email, role, profile_name, profile_phone, profile_email)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		a.Email, a.Credential.Salt, a.Credential.Hash,
		a.Credential.ResetToken, a.Credential.VerificationToken,
		a.Verified, a.LastVerifiedEmail, a.Role,
		a.Profile.Name, a.Profile.Phone, a.Profile.Email)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an account by primary key.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
	return scanAccount(row)
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email)
	return scanAccount(row)
}

// List returns all accounts ordered by id.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateProfile writes the profile sub-record.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uint64, p model.Profile) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET profile_name=?, profile_phone=?, profile_email=? WHERE id=?",
		p.Name, p.Phone, p.Email, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateEmail persists an email change together with the verification state
// the change reset: the new verification token, the cleared verified flag
// and the archived last verified address.
func (r *AccountRepo) UpdateEmail(ctx context.Context, a *model.Account) error {
	const q = `UPDATE accounts SET email=?, profile_email=?, verified=?,
		verification_token=?, last_verified_email=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, q,
		a.Email, a.Profile.Email, a.Verified,
		a.Credential.VerificationToken, a.LastVerifiedEmail, a.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return requireRow(res)
}

// UpdateRole sets the account's role.
func (r *AccountRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateCredential writes the full credential (salt, hash, reset token)
// unconditionally. Used by the authenticated change-password flow, where no
// one-time token guards the write.
func (r *AccountRepo) UpdateCredential(ctx context.Context, a *model.Account) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET salt=?, password_hash=?, reset_token=? WHERE id=?",
		a.Credential.Salt, a.Credential.Hash, a.Credential.ResetToken, a.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RotateCredentialIfReset writes the new credential only while the stored
// reset token still equals prevReset. The compare-and-rotate keeps two
// racing reset completions from both succeeding: the loser matches zero
// rows and gets ErrTokenMismatch.
func (r *AccountRepo) RotateCredentialIfReset(ctx context.Context, a *model.Account, prevReset string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET salt=?, password_hash=?, reset_token=? WHERE id=? AND reset_token=?",
		a.Credential.Salt, a.Credential.Hash, a.Credential.ResetToken, a.ID, prevReset)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// ConsumeVerification marks the account verified and rotates the
// verification token, guarded by the same compare-and-rotate discipline as
// password resets.
func (r *AccountRepo) ConsumeVerification(ctx context.Context, id uint64, prevToken, newToken string) error {
	const q = `UPDATE accounts SET verified=1, verification_token=?
		WHERE id=? AND verification_token=? AND verified=0`
	res, err := r.db.ExecContext(ctx, q, newToken, id, prevToken)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// Delete removes the account. There is no soft delete.
func (r *AccountRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// EmailExists reports whether an account with the given email exists.
func (r *AccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE email=?", email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (model.Account, error) {
	var (
		a            model.Account
		lastVerified sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &a.Credential.Salt, &a.Credential.Hash,
		&a.Credential.ResetToken, &a.Credential.VerificationToken,
		&a.Verified, &lastVerified, &a.Role,
		&a.Profile.Name, &a.Profile.Phone, &a.Profile.Email,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	a.LastVerifiedEmail = lastVerified.String
	return a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicate detects MySQL error 1062 (duplicate entry for a unique key).
func isDuplicate(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
