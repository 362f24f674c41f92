package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/dbx"
	"github.com/dmitrijs2005/encrypter/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, f *models.FileRecord) (int64, error) {
	query := `INSERT INTO files (name, mime, locator, size, encrypted, cipher_version, chunk_size, nonce, tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	version, chunkSize, nonce, tag := cipherArgs(f)
	created := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := r.db.ExecContext(ctx, query,
		f.DisplayName, f.MimeType, f.Locator, f.Size, f.Encrypted, version, chunkSize, nonce, tag, created)
	if err != nil {
		return 0, fmt.Errorf("failed to insert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id = ?`

	f, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %d: %w", id, err)
	}

	return f, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.FileRecord, 0)
	for rows.Next() {
		f, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	switch rowsAffected {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", rowsAffected)
	}
}
