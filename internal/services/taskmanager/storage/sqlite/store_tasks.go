package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
)

const taskColumns = `id, title, description, priority, tags, due_date, folder_id, owner_id, completed, created_at, updated_at`

// folderOwnedClause matches when the folder parameter is NULL or names a
// folder owned by the owner parameter. It binds folder, folder, owner.
const folderOwnedClause = `(? IS NULL OR EXISTS (SELECT 1 FROM folders WHERE id = ? AND owner_id = ?))`

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

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if strings.TrimSpace(raw) == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func dueDateMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func scanTask(row rowScanner) (storage.Task, error) {
	var task storage.Task
	var tags string
	var dueDate sql.NullInt64
	var folderID sql.NullString
	var completed int64
	var createdAt, updatedAt int64
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&tags,
		&dueDate,
		&folderID,
		&task.OwnerID,
		&completed,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Task{}, err
	}
	decoded, err := decodeTags(tags)
	if err != nil {
		return storage.Task{}, err
	}
	task.Tags = decoded
	if dueDate.Valid {
		due := fromMillis(dueDate.Int64)
		task.DueDate = &due
	}
	task.FolderID = folderID.String
	task.Completed = completed != 0
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}

// PutTask inserts a task. The folder check and the insert are one statement.
func (s *Store) PutTask(ctx context.Context, task storage.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(task.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}
	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}
	folderID := nullString(task.FolderID)

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		  WHERE `+folderOwnedClause,
		task.ID,
		task.Title,
		task.Description,
		task.Priority,
		tags,
		dueDateMillis(task.DueDate),
		folderID,
		task.OwnerID,
		task.Completed,
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
		folderID,
		folderID,
		task.OwnerID,
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
	task, err := scanTask(s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`,
		taskID,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns the owner's tasks oldest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+taskColumns+`
		   FROM tasks
		  WHERE owner_id = ?
		  ORDER BY created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]storage.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
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
	folderID := nullString(task.FolderID)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Task{}, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	updated, err := scanTask(tx.QueryRowContext(
		ctx,
		`UPDATE tasks
		    SET title = ?, description = ?, priority = ?, tags = ?,
		        due_date = ?, folder_id = ?, updated_at = ?
		  WHERE id = ? AND owner_id = ? AND `+folderOwnedClause+`
		RETURNING `+taskColumns,
		task.Title,
		task.Description,
		task.Priority,
		tags,
		dueDateMillis(task.DueDate),
		folderID,
		toMillis(task.UpdatedAt),
		task.ID,
		task.OwnerID,
		folderID,
		folderID,
		task.OwnerID,
	))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, fmt.Errorf("update task: %w", err)
		}
		// Tell a missing task apart from a rejected folder reference.
		var found int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ? AND owner_id = ?`, task.ID, task.OwnerID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		if err != nil {
			return storage.Task{}, fmt.Errorf("update task: %w", err)
		}
		return storage.Task{}, storage.ErrFolderNotFound
	}

	if err := tx.Commit(); err != nil {
		return storage.Task{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// SetTaskCompleted sets the completion flag of a task owned by ownerID.
func (s *Store) SetTaskCompleted(ctx context.Context, ownerID, taskID string, completed bool, updatedAt time.Time) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	task, err := scanTask(s.sqlDB.QueryRowContext(
		ctx,
		`UPDATE tasks
		    SET completed = ?, updated_at = ?
		  WHERE id = ? AND owner_id = ?
		RETURNING `+taskColumns,
		completed,
		toMillis(updatedAt),
		taskID,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, fmt.Errorf("set task completed: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, taskID, ownerID)
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
