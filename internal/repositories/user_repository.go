package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type UserRepository struct {
	conn
}

func NewUserRepository(db *sql.DB) UserRepository {
	return UserRepository{conn{DB: db}}
}

const userColumns = `id, full_name, email, phone, password_hash, role, locked, active, created_at, updated_at`

func scanUser(s rowScanner) (models.User, error) {
	var u models.User
	err := s.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.Locked, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r UserRepository) Create(ctx context.Context, u models.User) (int64, error) {
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO users (full_name, email, phone, password_hash, role, locked, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.FullName, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.Role, u.Locked, u.Active)
	if err != nil {
		if isDuplicate(err) {
			return 0, domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.q().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
	if err != nil {
		return models.User{}, notFound("user", err)
	}
	return u, nil
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.q().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return models.User{}, notFound("user", err)
	}
	return u, nil
}

// Update writes profile fields; an empty PasswordHash leaves the password alone.
func (r UserRepository) Update(ctx context.Context, u models.User) error {
	sets := []string{"full_name=?", "email=?", "phone=?", "role=?", "active=?"}
	args := []any{u.FullName, strings.ToLower(u.Email), u.Phone, u.Role, u.Active}
	if u.PasswordHash != "" {
		sets = append(sets, "password_hash=?")
		args = append(args, u.PasswordHash)
	}
	args = append(args, u.ID)
	_, err := r.q().ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ",")+` WHERE id=?`, args...)
	if isDuplicate(err) {
		return domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
	}
	return err
}

func (r UserRepository) SetLocked(ctx context.Context, id int64, locked bool) error {
	res, err := r.q().ExecContext(ctx, `UPDATE users SET locked=? WHERE id=?`, locked, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// List returns users whose role is one of roles.
func (r UserRepository) List(ctx context.Context, roles []string, q domain.ListQuery) ([]models.User, int, error) {
	q = q.Normalize()
	var w intdb.Where
	if len(roles) > 0 {
		args := make([]any, 0, len(roles))
		for _, role := range roles {
			args = append(args, role)
		}
		w.Add("role IN ("+intdb.Placeholders(len(roles))+")", args...)
	}
	if q.Keyword != "" {
		w.Add("(full_name LIKE ? OR email LIKE ? OR phone LIKE ?)", like(q.Keyword), like(q.Keyword), like(q.Keyword))
	}
	switch q.Status {
	case "LOCKED":
		w.Add("locked=1")
	case "ACTIVE":
		w.Add("locked=0 AND active=1")
	case "INACTIVE":
		w.Add("active=0")
	}

	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(q.SortField, q.SortDesc, map[string]string{
		"fullName":  "full_name",
		"email":     "email",
		"createdAt": "created_at",
	}, "id DESC")
	args := append(w.Args(), q.PageSize, q.Offset())
	rows, err := r.q().QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+w.SQL()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// RefreshTokenRepository stores hashed refresh tokens.
type RefreshTokenRepository struct {
	conn
}

func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return RefreshTokenRepository{conn{DB: db}}
}

type RefreshTokenRecord struct {
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
}

func (r RefreshTokenRepository) Save(ctx context.Context, hash string, userID int64, expiresAt time.Time) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		hash, userID, expiresAt)
	return err
}

func (r RefreshTokenRepository) Find(ctx context.Context, hash string) (RefreshTokenRecord, error) {
	var rec RefreshTokenRecord
	err := r.q().QueryRowContext(ctx, `SELECT user_id, expires_at, revoked FROM refresh_tokens WHERE token_hash=? LIMIT 1`, hash).
		Scan(&rec.UserID, &rec.ExpiresAt, &rec.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, domain.UnauthorizedError{Msg: "invalid refresh token"}
	}
	return rec, err
}

// Revoke reports whether a live token was revoked; a second call returns false.
func (r RefreshTokenRepository) Revoke(ctx context.Context, hash string) (bool, error) {
	res, err := r.q().ExecContext(ctx, `UPDATE refresh_tokens SET revoked=1 WHERE token_hash=? AND revoked=0`, hash)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.q().ExecContext(ctx, `UPDATE refresh_tokens SET revoked=1 WHERE user_id=? AND revoked=0`, userID)
	return err
}
