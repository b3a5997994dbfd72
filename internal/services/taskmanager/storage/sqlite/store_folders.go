package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
)

// PutFolder inserts a folder.
func (s *Store) PutFolder(ctx context.Context, folder storage.Folder) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(folder.ID) == "" {
		return fmt.Errorf("folder id is required")
	}
	if strings.TrimSpace(folder.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO folders (id, name, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		folder.ID,
		folder.Name,
		folder.OwnerID,
		toMillis(folder.CreatedAt),
		toMillis(folder.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put folder: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (storage.Folder, error) {
	var folder storage.Folder
	var createdAt, updatedAt int64
	if err := row.Scan(&folder.ID, &folder.Name, &folder.OwnerID, &createdAt, &updatedAt); err != nil {
		return storage.Folder{}, err
	}
	folder.CreatedAt = fromMillis(createdAt)
	folder.UpdatedAt = fromMillis(updatedAt)
	return folder, nil
}

// GetFolder fetches a folder owned by ownerID.
func (s *Store) GetFolder(ctx context.Context, ownerID, folderID string) (storage.Folder, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Folder{}, err
	}
	folder, err := scanFolder(s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		   FROM folders
		  WHERE id = ? AND owner_id = ?`,
		folderID,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Folder{}, storage.ErrNotFound
		}
		return storage.Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// ListFolders returns the owner's folders oldest first.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]storage.Folder, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		   FROM folders
		  WHERE owner_id = ?
		  ORDER BY created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]storage.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("list folders: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// RenameFolder renames a folder owned by ownerID.
func (s *Store) RenameFolder(ctx context.Context, ownerID, folderID, name string, updatedAt time.Time) (storage.Folder, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Folder{}, err
	}
	folder, err := scanFolder(s.sqlDB.QueryRowContext(
		ctx,
		`UPDATE folders
		    SET name = ?, updated_at = ?
		  WHERE id = ? AND owner_id = ?
		RETURNING id, name, owner_id, created_at, updated_at`,
		name,
		toMillis(updatedAt),
		folderID,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Folder{}, storage.ErrNotFound
		}
		return storage.Folder{}, fmt.Errorf("rename folder: %w", err)
	}
	return folder, nil
}

// DeleteFolderCascade removes the owner's tasks in the folder and then the
// folder in one transaction.
func (s *Store) DeleteFolderCascade(ctx context.Context, ownerID, folderID string) (storage.FolderDeletion, error) {
	if err := s.ready(ctx); err != nil {
		return storage.FolderDeletion{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	taskResult, err := tx.ExecContext(
		ctx,
		`DELETE FROM tasks WHERE owner_id = ? AND folder_id = ?`,
		ownerID,
		folderID,
	)
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("delete folder tasks: %w", err)
	}
	tasksDeleted, err := taskResult.RowsAffected()
	if err != nil {
		return storage.FolderDeletion{}, fmt.Errorf("delete folder tasks: %w", err)
	}

	folderResult, err := tx.ExecContext(
		ctx,
		`DELETE FROM folders WHERE id = ? AND owner_id = ?`,
		folderID,
		ownerID,
	)
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
