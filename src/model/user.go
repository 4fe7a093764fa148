package model

import (
	"database/sql"
	"errors"
	"time"
)

// User is the single owner of the ledger. Registration is one-shot: once a
// row exists, further signups are rejected upstream.
type User struct {
	ID               int64
	Username         string
	Password         string // bcrypt hash
	SyncID           string
	AutoSync         bool
	LastSynced       string
	VaultTOTPSecret  string
	VaultTOTPEnabled bool
	LoginCount       int64
	LastLoginAt      sql.NullTime
	CreatedAt        time.Time
}

type Session struct {
	ID           int64
	UserID       int64
	Token        string
	RefreshToken string
	UserAgent    string
	ClientIP     string
	IsBlocked    bool
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func CreateUser(db DBTX, username, passwordHash string) (int64, error) {
	res, err := db.Exec(`
	INSERT INTO users (username, password, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, time.Now(), time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.SyncID, &u.AutoSync, &u.LastSynced,
		&u.VaultTOTPSecret, &u.VaultTOTPEnabled, &u.LoginCount, &u.LastLoginAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

const userColumns = `id, username, password, sync_id, auto_sync, last_synced,
	vault_totp_secret, vault_totp_enabled, login_count, last_login_at, created_at`

func GetUserByUsername(db DBTX, username string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func GetUserByID(db DBTX, id int64) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetOwner returns the single registered user.
func GetOwner(db DBTX) (*User, error) {
	return scanUser(db.QueryRow(`SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT 1`))
}

func CountUsers(db DBTX) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func RecordLogin(db DBTX, userID int64) error {
	_, err := db.Exec(`
	UPDATE users SET login_count = login_count + 1, last_login_at = ?, updated_at = ? WHERE id = ?`,
		time.Now(), time.Now(), userID)
	return err
}

func UpdateSyncInfo(db DBTX, userID int64, syncID string, autoSync bool, lastSynced string) error {
	_, err := db.Exec(`
	UPDATE users SET sync_id = ?, auto_sync = ?, last_synced = ?, updated_at = ? WHERE id = ?`,
		syncID, autoSync, lastSynced, time.Now(), userID)
	return err
}

func UpdateVaultTOTP(db DBTX, userID int64, secret string, enabled bool) error {
	_, err := db.Exec(`
	UPDATE users SET vault_totp_secret = ?, vault_totp_enabled = ?, updated_at = ? WHERE id = ?`,
		secret, enabled, time.Now(), userID)
	return err
}

func UpdatePassword(db DBTX, userID int64, passwordHash string) error {
	_, err := db.Exec(`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), userID)
	return err
}

func CreateSession(db DBTX, s *Session) error {
	_, err := db.Exec(`
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Token, s.RefreshToken, s.UserAgent, s.ClientIP, s.IsBlocked, s.ExpiresAt, time.Now())
	return err
}

func GetSessionByToken(db DBTX, token string) (*Session, error) {
	return scanSession(db.QueryRow(`
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions WHERE token = ?`, token))
}

func GetSessionByRefreshToken(db DBTX, refreshToken string) (*Session, error) {
	return scanSession(db.QueryRow(`
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions WHERE refresh_token = ?`, refreshToken))
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent,
		&s.ClientIP, &s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func DeleteSessionByToken(db DBTX, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func DeleteSessionsForUser(db DBTX, userID int64) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func DeleteExpiredSessions(db DBTX) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	return err
}
