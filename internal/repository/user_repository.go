package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/utils"
)

// UserRepo persists users and their role assignments.  Roles live in a
// normalized roles/user_roles pair of tables; a user may hold several.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user, hashes the password with bcrypt and assigns
// the EMPLOYEE role.  Returns the new user ID or ErrEmailExists on a
// duplicate email.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?,?)",
		email, hash)
	if err != nil {
		// MySQL duplicate-key error code.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	uid := uint64(id)
	if err := r.GrantRole(ctx, uid, model.RoleEmployee); err != nil {
		return 0, err
	}
	return uid, nil
}

// GetByEmail fetches a user (with roles) by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Roles, err = r.RolesOf(ctx, u.ID)
	return u, err
}

// GetByID fetches a user (with roles) by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Roles, err = r.RolesOf(ctx, u.ID)
	return u, err
}

// RolesOf returns the role names assigned to a user, sorted by name.
func (r *UserRepo) RolesOf(ctx context.Context, userID uint64) ([]string, error) {
	const q = `SELECT ro.name
	           FROM user_roles ur
	           JOIN roles ro ON ro.id = ur.role_id
	           WHERE ur.user_id = ?
	           ORDER BY ro.name`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]string, 0, 2)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// GrantRole assigns a role by name; granting an already held role is a
// no-op thanks to INSERT IGNORE on the join table.
func (r *UserRepo) GrantRole(ctx context.Context, userID uint64, role string) error {
	const q = `INSERT IGNORE INTO user_roles (user_id, role_id)
	           SELECT ?, id FROM roles WHERE name = ?`
	res, err := r.DB.ExecContext(ctx, q, userID, strings.ToUpper(role))
	if err != nil {
		return err
	}
	// Zero rows with no error means the role name itself is unknown,
	// since INSERT IGNORE still reports a duplicate as zero.  Verify.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM roles WHERE name=?)", strings.ToUpper(role)).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}
	}
	return nil
}

// RevokeRole removes a role assignment by name.
func (r *UserRepo) RevokeRole(ctx context.Context, userID uint64, role string) error {
	const q = `DELETE ur FROM user_roles ur
	           JOIN roles ro ON ro.id = ur.role_id
	           WHERE ur.user_id = ? AND ro.name = ?`
	_, err := r.DB.ExecContext(ctx, q, userID, strings.ToUpper(role))
	return err
}

// SetActive flips a user's is_active flag.  Deactivated users cannot
// log in; their refresh tokens should be revoked by the caller.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns all users with their roles, newest first.  The roles of
// the whole page are loaded in one join query.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,email,password_hash,is_active,created_at,updated_at FROM users ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Roles = []string{}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}

	const roleQ = `SELECT ur.user_id, ro.name
	               FROM user_roles ur
	               JOIN roles ro ON ro.id = ur.role_id
	               ORDER BY ur.user_id, ro.name`
	rrows, err := r.DB.QueryContext(ctx, roleQ)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var uid uint64
		var name string
		if err := rrows.Scan(&uid, &name); err != nil {
			return nil, err
		}
		if i, ok := index[uid]; ok {
			users[i].Roles = append(users[i].Roles, name)
		}
	}
	return users, rrows.Err()
}
