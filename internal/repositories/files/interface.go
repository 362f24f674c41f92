package files

import (
	"context"

	"github.com/dmitrijs2005/encrypter/internal/models"
)

// Repository describes ledger operations on file records.
type Repository interface {
	// Insert stores f and returns the id assigned by the database.
	Insert(ctx context.Context, f *models.FileRecord) (int64, error)

	// GetByID returns the record with the given id or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.FileRecord, error)

	// List returns all records in insertion order.
	List(ctx context.Context) ([]*models.FileRecord, error)

	// DeleteByID removes the record and reports whether it existed.
	DeleteByID(ctx context.Context, id int64) (bool, error)
}
