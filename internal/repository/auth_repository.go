package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

// ErrDuplicateEmail is returned when an account with the email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrVerificationInvalid is returned for unknown, consumed or expired verification tokens.
var ErrVerificationInvalid = errors.New("verification token invalid or expired")

const authUserColumns = `id, email, password_hash, active, email_verified_at, last_login, created_at, updated_at`

// AuthRepository stores identity-provider accounts, sessions and the audit trail.
type AuthRepository struct {
	db *sqlx.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sqlx.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// FindByEmail returns an account by email address.
func (r *AuthRepository) FindByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	query := `SELECT ` + authUserColumns + ` FROM auth_users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.AuthUser
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find auth user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns an account by identifier.
func (r *AuthRepository) FindByID(ctx context.Context, id string) (*models.AuthUser, error) {
	query := `SELECT ` + authUserColumns + ` FROM auth_users WHERE id = $1 LIMIT 1`
	var user models.AuthUser
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find auth user by id: %w", err)
	}
	return &user, nil
}

// Register creates the account, its learner profile and a verification token in one
// transaction. The profile's generated user id is written back into profile.
func (r *AuthRepository) Register(ctx context.Context, user *models.AuthUser, profile *models.Profile, verification *models.EmailVerification) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.AuthUserID = user.ID
	verification.AuthUserID = user.ID
	verification.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertUser = `INSERT INTO auth_users (id, email, password_hash, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insertUser, user.ID, user.Email, user.PasswordHash, user.Active, now, now); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert auth user: %w", err)
	}

	const insertProfile = `INSERT INTO profiles (id, auth_user_id, name, email, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING user_id, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, insertProfile, profile.ID, user.ID, profile.Name, profile.Email, profile.Phone, now, now).
		Scan(&profile.UserID, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	const insertVerification = `INSERT INTO email_verifications (token, auth_user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertVerification, verification.Token, user.ID, verification.ExpiresAt, now); err != nil {
		return fmt.Errorf("insert email verification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register tx: %w", err)
	}
	return nil
}

// ConsumeVerification marks the token used and the account verified, returning the account id.
func (r *AuthRepository) ConsumeVerification(ctx context.Context, token string, now time.Time) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin verification tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const consume = `UPDATE email_verifications SET consumed_at = $2 WHERE token = $1 AND consumed_at IS NULL AND expires_at > $2 RETURNING auth_user_id`
	var userID string
	if err := tx.QueryRowxContext(ctx, consume, token, now).Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrVerificationInvalid
		}
		return "", fmt.Errorf("consume verification: %w", err)
	}

	const verify = `UPDATE auth_users SET email_verified_at = $2, updated_at = $2 WHERE id = $1 AND email_verified_at IS NULL`
	if _, err := tx.ExecContext(ctx, verify, userID, now); err != nil {
		return "", fmt.Errorf("mark email verified: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit verification tx: %w", err)
	}
	return userID, nil
}

// HasRole reports whether the account holds role.
func (r *AuthRepository) HasRole(ctx context.Context, userID string, role models.UserRole) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, userID, string(role)); err != nil {
		return false, fmt.Errorf("lookup role: %w", err)
	}
	return ok, nil
}

// GrantRole assigns role to the account; granting twice is a no-op.
func (r *AuthRepository) GrantRole(ctx context.Context, userID string, role models.UserRole) error {
	const query = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, string(role)); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for an account.
func (r *AuthRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE auth_users SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *AuthRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by its opaque value.
func (r *AuthRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all live refresh tokens of an account.
func (r *AuthRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *AuthRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
