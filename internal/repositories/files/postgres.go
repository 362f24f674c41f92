package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/dbx"
	"github.com/dmitrijs2005/encrypter/internal/models"
)

// PostgresRepository implements the ledger over a dbx.DBTX (*sql.DB or *sql.Tx)
// opened with the pgx stdlib driver.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores f and returns the identity value assigned by PostgreSQL.
func (r *PostgresRepository) Insert(ctx context.Context, f *models.FileRecord) (int64, error) {
	query := `
		INSERT INTO files (name, mime, locator, size, encrypted, cipher_version, chunk_size, nonce, tag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	version, chunkSize, nonce, tag := cipherArgs(f)

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		f.DisplayName, f.MimeType, f.Locator, f.Size, f.Encrypted, version, chunkSize, nonce, tag).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

// GetByID returns a single record or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id = $1`

	f, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

// List returns all records ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
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
			return nil, err
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteByID removes the record with the given id.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}

	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}
