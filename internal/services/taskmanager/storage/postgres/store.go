// Package postgres provides the PostgreSQL-backed taskmanager store, using
// sqlx over the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/louisbranch/taskmanager/internal/platform/storage/sqlmigrate"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage/postgres/migrations"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

const pgUniqueViolation = "23505"

// Store persists taskmanager state in PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and applies embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := sqlmigrate.Apply(ctx, db.DB, sqlmigrate.Postgres, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// PutUser inserts a user record.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	const q = `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.Name, u.CreatedAt.UTC(), u.UpdatedAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	return s.getUser(ctx, `SELECT id, email, password_hash, name, created_at, updated_at FROM users WHERE id = $1`, userID)
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	return s.getUser(ctx, `SELECT id, email, password_hash, name, created_at, updated_at FROM users WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, q string, arg string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toUser(), nil
}

type folderRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r folderRow) toFolder() storage.Folder {
	return storage.Folder{
		ID:        r.ID,
		Name:      r.Name,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// PutFolder inserts a folder.
func (s *Store) PutFolder(ctx context.Context, folder storage.Folder) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	const q = `
		INSERT INTO folders (id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, q, folder.ID, folder.Name, folder.OwnerID, folder.CreatedAt.UTC(), folder.UpdatedAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put folder: %w", err)
	}
	return nil
}

// GetFolder fetches a folder owned by ownerID.
func (s *Store) GetFolder(ctx context.Context, ownerID, folderID string) (storage.Folder, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Folder{}, err
	}
	const q = `
		SELECT id, name, owner_id, created_at, updated_at
		FROM folders
		WHERE id = $1 AND owner_id = $2`
	var row folderRow
	if err := s.db.GetContext(ctx, &row, q, folderID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Folder{}, storage.ErrNotFound
		}
		return storage.Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return row.toFolder(), nil
}

// ListFolders returns the owner's folders oldest first.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]storage.Folder, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	const q = `
		SELECT id, name, owner_id, created_at, updated_at
		FROM folders
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC`
	var rows []folderRow
	if err := s.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	folders := make([]storage.Folder, 0, len(rows))
	for _, row := range rows {
		folders = append(folders, row.toFolder())
	}
	return folders, nil
}

// RenameFolder renames a folder owned by ownerID.
func (s *Store) RenameFolder(ctx context.Context, ownerID, folderID, name string, updatedAt time.Time) (storage.Folder, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Folder{}, err
	}
	const q = `
		UPDATE folders
		SET name = $3, updated_at = $4
		WHERE id = $1 AND owner_id = $2
		RETURNING id, name, owner_id, created_at, updated_at`
	var row folderRow
	if err := s.db.GetContext(ctx, &row, q, folderID, ownerID, name, updatedAt.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Folder{}, storage.ErrNotFound
		}
		return storage.Folder{}, fmt.Errorf("rename folder: %w", err)
	}
	return row.toFolder(), nil
}

// DeleteFolderCascade removes the owner's tasks in the folder and then the
// folder in one transaction.
func (s *Store) DeleteFolderCascade(ctx context.Context, ownerID, folderID string) (storage.FolderDeletion, error) {
	if err := s.ready(ctx); err != nil {
		return storage.FolderDeletion{}, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	taskResult, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = $1 AND folder_id = $2`, ownerID, folderID)
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("delete folder tasks: %w", err)
	}
	tasksDeleted, err := taskResult.RowsAffected()
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("delete folder tasks: %w", err)
	}
	folderResult, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2`, folderID, ownerID)
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("delete folder: %w", err)
	}
	foldersDeleted, err := folderResult.RowsAffected()
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("delete folder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("commit: %w", err)
	}
	return storage.FolderDeletion{FolderDeleted: foldersDeleted > 0, TasksDeleted: tasksDeleted}, nil
}

const taskColumns = `id, title, description, priority, tags, due_date, folder_id, owner_id, completed, created_at, updated_at`

type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Priority    string         `db:"priority"`
	Tags        string         `db:"tags"`
	DueDate     sql.NullTime   `db:"due_date"`
	FolderID    sql.NullString `db:"folder_id"`
	OwnerID     string         `db:"owner_id"`
	Completed   bool           `db:"completed"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r taskRow) toTask() (storage.Task, error) {
	tags := []string{}
	if strings.TrimSpace(r.Tags) != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return storage.Task{}, fmt.Errorf("decode tags: %w", err)
		}
		if tags == nil {
			tags = []string{}
		}
	}
	task := storage.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Tags:        tags,
		FolderID:    r.FolderID.String,
		OwnerID:     r.OwnerID,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time.UTC()
		task.DueDate = &due
	}
	return task, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func dueDateValue(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}

// PutTask inserts a task. The folder check and the insert are one statement.
func (s *Store) PutTask(ctx context.Context, task storage.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO tasks (` + taskColumns + `)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::timestamptz, $7::text, $8::text, $9::boolean, $10::timestamptz, $11::timestamptz
		WHERE $7::text IS NULL OR EXISTS (SELECT 1 FROM folders WHERE id = $7 AND owner_id = $8)`
	result, err := s.db.ExecContext(ctx, q,
		task.ID,
		task.Title,
		task.Description,
		task.Priority,
		tags,
		dueDateValue(task.DueDate),
		nullString(task.FolderID),
		task.OwnerID,
		task.Completed,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put task: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	if inserted == 0 {
		return storage.ErrFolderNotFound
	}
	return nil
}

// GetTask fetches a task owned by ownerID.
func (s *Store) GetTask(ctx context.Context, ownerID, taskID string) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	var row taskRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner_id = $2`, taskID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, fmt.Errorf("get task: %w", err)
	}
	return row.toTask()
}

// ListTasks returns the owner's tasks oldest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`, ownerID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]storage.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toTask()
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// UpdateTask overwrites the mutable fields of a task owned by task.OwnerID.
func (s *Store) UpdateTask(ctx context.Context, task storage.Task) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	tags, err := encodeTags(task.Tags)
	if err != nil {
		return storage.Task{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storage.Task{}, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const q = `
		UPDATE tasks
		SET title = $3, description = $4, priority = $5, tags = $6,
		    due_date = $7, folder_id = $8, updated_at = $9
		WHERE id = $1 AND owner_id = $2
		  AND ($8::text IS NULL OR EXISTS (SELECT 1 FROM folders WHERE id = $8 AND owner_id = $2))
		RETURNING ` + taskColumns
	var row taskRow
	err = tx.GetContext(ctx, &row, q,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Priority,
		tags,
		dueDateValue(task.DueDate),
		nullString(task.FolderID),
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, fmt.Errorf("update task: %w", err)
		}
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND owner_id = $2)`, task.ID, task.OwnerID); err != nil {
			return storage.Task{}, fmt.Errorf("update task: %w", err)
		}
		if !exists {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, storage.ErrFolderNotFound
	}
	if err := tx.Commit(); err != nil {
		return storage.Task{}, fmt.Errorf("commit: %w", err)
	}
	return row.toTask()
}

// SetTaskCompleted sets the completion flag of a task owned by ownerID.
func (s *Store) SetTaskCompleted(ctx context.Context, ownerID, taskID string, completed bool, updatedAt time.Time) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	const q = `
		UPDATE tasks
		SET completed = $3, updated_at = $4
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns
	var row taskRow
	if err := s.db.GetContext(ctx, &row, q, taskID, ownerID, completed, updatedAt.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, fmt.Errorf("set task completed: %w", err)
	}
	return row.toTask()
}

// DeleteTask removes a task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
