package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateUser inserts a new account row and returns its id.
func (s *Store) CreateUser(username, passwordHash string) (int64, error) {
	if username == "" {
		return 0, errors.New("username is required")
	}
	if passwordHash == "" {
		return 0, errors.New("password hash is required")
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username,
		passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert user %q: %w", username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read new user id: %w", err)
	}
	return id, nil
}

// GetUserByUsername returns one account matched exactly by username.
func (s *Store) GetUserByUsername(username string) (*User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	row := s.db.QueryRow(
		`SELECT id, username, password_hash, display_name, status, avatar
		FROM users WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

// SearchUsers returns accounts whose username contains the filter,
// matching the original endpoint's substring semantics. An empty filter
// returns every account.
func (s *Store) SearchUsers(usernameFilter string) ([]User, error) {
	rows, err := s.db.Query(
		`SELECT id, username, password_hash, display_name, status, avatar
		FROM users
		WHERE username LIKE '%' || ? || '%'
		ORDER BY id ASC`,
		usernameFilter,
	)
	if err != nil {
		return nil, fmt.Errorf("search users %q: %w", usernameFilter, err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.DisplayName,
			&user.Status,
			&user.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, nil
}

// UpdateProfile sets the presentation fields of an account.
func (s *Store) UpdateProfile(username, displayName, status, avatar string) error {
	if username == "" {
		return errors.New("username is required")
	}

	result, err := s.db.Exec(
		`UPDATE users SET display_name = ?, status = ?, avatar = ? WHERE username = ?`,
		displayName,
		status,
		avatar,
		username,
	)
	if err != nil {
		return fmt.Errorf("update profile %q: %w", username, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for profile update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Status,
		&user.Avatar,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return &user, nil
}
