package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/subrelay/backend/internal/auth"
	"github.com/subrelay/backend/internal/db/models"
)

// ErrNotFound is returned when a row looked up by id does not exist.
var ErrNotFound = errors.New("not found")

type Database struct {
	db *sql.DB
}

func NewSQLite(path string) (*Database, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS translation_presets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		prompt TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *Database) EnsureAdmin(username, password string) error {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = d.CreateUser(username, password, models.RoleAdmin)
	return err
}

// CreateUser stores a user with a bcrypt-hashed password.
func (d *Database) CreateUser(username, password, role string) (int64, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}
	result, err := d.db.Exec(
		"INSERT INTO users (username, password, role) VALUES (?, ?, ?)",
		username, hash, role,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *Database) GetUserByID(id int64) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *Database) ListUsers() ([]models.User, error) {
	rows, err := d.db.Query("SELECT id, username, role, created_at, updated_at FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *Database) CountAdmins() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = ?", models.RoleAdmin).Scan(&count)
	return count, err
}

func (d *Database) DeleteUser(id int64) error {
	result, err := d.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetSetting returns a setting value by key, or defaultVal if not found
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

// GetAllSettings returns all settings as a map
func (d *Database) GetAllSettings() (map[string]string, error) {
	rows, err := d.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

func (d *Database) Close() error {
	return d.db.Close()
}

// ListTranslationPresets returns all saved presets ordered by creation time
func (d *Database) ListTranslationPresets() ([]models.TranslationPreset, error) {
	rows, err := d.db.Query("SELECT id, name, prompt, created_at FROM translation_presets ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presets := []models.TranslationPreset{}
	for rows.Next() {
		var p models.TranslationPreset
		if err := rows.Scan(&p.ID, &p.Name, &p.Prompt, &p.CreatedAt); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// GetTranslationPreset returns one preset by id.
func (d *Database) GetTranslationPreset(id int64) (*models.TranslationPreset, error) {
	p := &models.TranslationPreset{}
	err := d.db.QueryRow(
		"SELECT id, name, prompt, created_at FROM translation_presets WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Prompt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateTranslationPreset saves a new custom translation preset
func (d *Database) CreateTranslationPreset(name, prompt string) (int64, error) {
	result, err := d.db.Exec(
		"INSERT INTO translation_presets (name, prompt) VALUES (?, ?)",
		name, prompt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateTranslationPreset replaces a preset's name and prompt.
func (d *Database) UpdateTranslationPreset(id int64, name, prompt string) error {
	result, err := d.db.Exec(
		"UPDATE translation_presets SET name = ?, prompt = ? WHERE id = ?",
		name, prompt, id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// DeleteTranslationPreset removes a saved preset by ID
func (d *Database) DeleteTranslationPreset(id int64) error {
	result, err := d.db.Exec("DELETE FROM translation_presets WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
