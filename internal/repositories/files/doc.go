// Package files persists the ledger of encrypted files.
//
// # Overview
//
// The package defines a Repository interface for inserting, reading, listing
// and deleting FileRecord rows, with SQLite (SQLiteRepository) and PostgreSQL
// (PostgresRepository) implementations over a dbx.DBTX (*sql.DB or *sql.Tx).
//
// Ids are assigned by the database, increase monotonically and are never
// reused. Cipher metadata (version, chunk size, nonce, tag) is stored in
// nullable columns that are empty for plaintext records.
//
// Typical Usage
//
//	repo := files.NewSQLiteRepository(db)
//	id, _ := repo.Insert(ctx, rec)
//	all, _ := repo.List(ctx)
//	ok, _ := repo.DeleteByID(ctx, id)
package files
