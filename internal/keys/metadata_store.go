package keys

import (
	"context"

	"github.com/dmitrijs2005/encrypter/internal/dbx"
	"github.com/dmitrijs2005/encrypter/internal/repositories/metadata"
	"github.com/dmitrijs2005/encrypter/internal/repositories/repomanager"
)

const (
	metaWrappedKey         = "keys/wrapped"
	metaEnrollmentPrefix   = "keys/enrollment/"
	metaEnrollmentID       = metaEnrollmentPrefix + "id"
	metaEnrollmentSalt     = metaEnrollmentPrefix + "salt"
	metaEnrollmentVerifier = metaEnrollmentPrefix + "verifier"
)

// MetadataStore keeps the enrollment and the wrapped key in the ledger's
// metadata table. It is both the software KeyStore and the EnrollmentStore
// for every backend.
type MetadataStore struct {
	db    *dbx.Serial
	repos repomanager.RepositoryManager
}

func NewMetadataStore(db *dbx.Serial, repos repomanager.RepositoryManager) *MetadataStore {
	return &MetadataStore{db: db, repos: repos}
}

func (s *MetadataStore) Name() string { return "software" }

func (s *MetadataStore) Probe() error { return nil }

func (s *MetadataStore) Load(ctx context.Context) ([]byte, error) {
	var wrapped []byte
	err := s.db.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		wrapped, err = s.repos.Metadata(db).Get(ctx, metaWrappedKey)
		return err
	})
	if err != nil {
		return nil, storeErr("load key", err)
	}
	if wrapped == nil {
		return nil, ErrKeyNotFound
	}
	return wrapped, nil
}

func (s *MetadataStore) Save(ctx context.Context, wrapped []byte) error {
	err := s.db.Tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Metadata(tx).Set(ctx, metaWrappedKey, wrapped)
	})
	if err != nil {
		return storeErr("save key", err)
	}
	return nil
}

func (s *MetadataStore) Delete(ctx context.Context) error {
	err := s.db.Tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Metadata(tx).Delete(ctx, metaWrappedKey)
	})
	if err != nil {
		return storeErr("delete key", err)
	}
	return nil
}

func (s *MetadataStore) LoadEnrollment(ctx context.Context) (*Enrollment, error) {
	var e *Enrollment
	err := s.db.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		repo := s.repos.Metadata(db)

		id, err := repo.Get(ctx, metaEnrollmentID)
		if err != nil || id == nil {
			return err
		}
		salt, err := repo.Get(ctx, metaEnrollmentSalt)
		if err != nil {
			return err
		}
		verifier, err := repo.Get(ctx, metaEnrollmentVerifier)
		if err != nil {
			return err
		}

		e = &Enrollment{ID: string(id), Salt: salt, Verifier: verifier}
		return nil
	})
	if err != nil {
		return nil, storeErr("load enrollment", err)
	}
	return e, nil
}

// SaveEnrollment replaces any previous enrollment atomically.
func (s *MetadataStore) SaveEnrollment(ctx context.Context, e *Enrollment) error {
	err := s.db.Tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Metadata(tx)
		if err := repo.DeletePrefix(ctx, metaEnrollmentPrefix); err != nil {
			return err
		}
		return setAll(ctx, repo, map[string][]byte{
			metaEnrollmentID:       []byte(e.ID),
			metaEnrollmentSalt:     e.Salt,
			metaEnrollmentVerifier: e.Verifier,
		})
	})
	if err != nil {
		return storeErr("save enrollment", err)
	}
	return nil
}

func setAll(ctx context.Context, repo metadata.Repository, kv map[string][]byte) error {
	for k, v := range kv {
		if err := repo.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
