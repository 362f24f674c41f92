// Package registry is the ledger of encrypted files. All access goes through
// a single serialized handle, and every mutation runs in its own transaction.
package registry

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/dbx"
	"github.com/dmitrijs2005/encrypter/internal/models"
	"github.com/dmitrijs2005/encrypter/internal/repositories/repomanager"
)

type Registry struct {
	db    *dbx.Serial
	repos repomanager.RepositoryManager
}

func New(db *dbx.Serial, repos repomanager.RepositoryManager) *Registry {
	return &Registry{db: db, repos: repos}
}

// List returns every record in insertion order.
func (r *Registry) List(ctx context.Context) ([]*models.FileRecord, error) {
	var out []*models.FileRecord
	err := r.db.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		out, err = r.repos.Files(db).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Insert persists rec and returns its new id. rec must not carry an id yet;
// on success rec.ID is updated as well.
func (r *Registry) Insert(ctx context.Context, rec *models.FileRecord) (int64, error) {
	if rec.ID != models.NoID {
		return 0, fmt.Errorf("insert record %d: %w", rec.ID, common.ErrorAlreadyPersisted)
	}

	var id int64
	err := r.db.Tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		id, err = r.repos.Files(tx).Insert(ctx, rec)
		return err
	})
	if err != nil {
		return 0, err
	}

	rec.ID = id
	return id, nil
}

// Get returns the record with the given id or common.ErrorNotFound.
func (r *Registry) Get(ctx context.Context, id int64) (*models.FileRecord, error) {
	var out *models.FileRecord
	err := r.db.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		out, err = r.repos.Files(db).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the ledger row only and reports whether it existed.
func (r *Registry) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.db.Tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		deleted, err = r.repos.Files(tx).DeleteByID(ctx, id)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
