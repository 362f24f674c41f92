// Package vault coordinates encrypt and decrypt requests: it authorizes the
// key, streams content through the cipher engine, and keeps the ledger in step
// with the blobs actually stored.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/encrypter/internal/blobstore"
	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/keys"
	"github.com/dmitrijs2005/encrypter/internal/locator"
	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/dmitrijs2005/encrypter/internal/models"
)

// Authorizer unlocks the master key for one request.
type Authorizer interface {
	Authorize(ctx context.Context) (*keys.Handle, error)
}

// Ledger is the record store the coordinator keeps consistent with blobs.
type Ledger interface {
	List(ctx context.Context) ([]*models.FileRecord, error)
	Insert(ctx context.Context, rec *models.FileRecord) (int64, error)
	Get(ctx context.Context, id int64) (*models.FileRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Coordinator struct {
	keys     Authorizer
	engine   *cryptox.Engine
	ledger   Ledger
	blobs    blobstore.Store
	locator  locator.StreamLocator
	log      logging.Logger
	observer StateObserver

	wg sync.WaitGroup
}

type Option func(*Coordinator)

func WithStateObserver(o StateObserver) Option {
	return func(c *Coordinator) { c.observer = o }
}

func New(
	authorizer Authorizer,
	engine *cryptox.Engine,
	ledger Ledger,
	blobs blobstore.Store,
	loc locator.StreamLocator,
	log logging.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		keys:    authorizer,
		engine:  engine,
		ledger:  ledger,
		blobs:   blobs,
		locator: loc,
		log:     log.With("module", "vault"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Coordinator) begin(op Op) *request {
	return &request{op: op, state: StateIdle, observer: c.observer}
}

// Encrypt stores the content at source as a new encrypted record. On any
// failure no record is inserted and no blob remains.
func (c *Coordinator) Encrypt(ctx context.Context, source string) (*models.FileRecord, error) {
	req := c.begin(OpEncrypt)
	rec, err := c.encrypt(ctx, req, source)
	req.finish(err)
	if err != nil {
		c.log.Warn(ctx, "encrypt failed", "source", source, "state", req.state, "error", err)
		return nil, classify(OpEncrypt, err)
	}

	c.log.Info(ctx, "file encrypted", "id", rec.ID, "name", rec.DisplayName, "size", rec.Size)
	return rec, nil
}

func (c *Coordinator) encrypt(ctx context.Context, req *request, source string) (*models.FileRecord, error) {
	req.move(StateAuthorizing)
	h, err := c.keys.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	src, err := c.locator.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer src.Body.Close()

	req.move(StateTransforming)
	loc, sink, err := c.blobs.Create(ctx)
	if err != nil {
		return nil, err
	}

	meta, err := c.engine.EncryptStream(h, src.Body, sink)
	if err != nil {
		_ = sink.Abort()
		return nil, err
	}

	req.move(StateCommitting)
	if err := sink.Commit(); err != nil {
		return nil, fmt.Errorf("commit blob: %w", err)
	}

	size := src.Size
	if size != meta.Size {
		if size != models.UnknownSize {
			c.log.Warn(ctx, "source changed size while reading", "reported", size, "read", meta.Size)
		}
		size = meta.Size
	}

	rec := &models.FileRecord{
		ID:          models.NoID,
		DisplayName: src.DisplayName,
		MimeType:    src.MimeType,
		Locator:     loc,
		Size:        size,
		Encrypted:   true,
		Cipher:      meta,
	}
	if _, err := c.ledger.Insert(ctx, rec); err != nil {
		c.discardBlob(ctx, loc)
		return nil, err
	}
	return rec, nil
}

func (c *Coordinator) discardBlob(ctx context.Context, loc string) {
	ctx = context.WithoutCancel(ctx)
	if err := c.blobs.Remove(ctx, loc); err != nil && !errors.Is(err, common.ErrorNotFound) {
		c.log.Error(ctx, "orphaned blob left behind", "locator", loc, "error", err)
	}
}

// Decrypt restores rec into destination and returns an ephemeral plaintext
// record describing it. The ledger is not modified.
func (c *Coordinator) Decrypt(ctx context.Context, rec *models.FileRecord, destination string) (*models.FileRecord, error) {
	req := c.begin(OpDecrypt)
	out, err := c.decrypt(ctx, req, rec, destination)
	req.finish(err)
	if err != nil {
		c.log.Warn(ctx, "decrypt failed", "destination", destination, "state", req.state, "error", err)
		return nil, classify(OpDecrypt, err)
	}

	c.log.Info(ctx, "file decrypted", "id", rec.ID, "destination", out.Locator)
	return out, nil
}

func (c *Coordinator) decrypt(ctx context.Context, req *request, rec *models.FileRecord, destination string) (*models.FileRecord, error) {
	if rec == nil || !rec.Encrypted {
		return nil, ErrNotEncrypted
	}
	if err := rec.Cipher.Validate(); err != nil {
		return nil, err
	}

	req.move(StateAuthorizing)
	h, err := c.keys.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	req.move(StateTransforming)
	body, err := c.blobs.Open(ctx, rec.Locator)
	if err != nil {
		// The record exists, so a vanished blob is an I/O failure.
		return nil, fmt.Errorf("%w: open blob: %w", cryptox.ErrIO, err)
	}
	defer body.Close()

	sink, resolved, err := c.locator.Create(ctx, destination, rec.DisplayName, rec.MimeType)
	if err != nil {
		return nil, err
	}

	// The engine commits sink once the stream tag verified.
	if err := c.engine.DecryptStream(h, rec.Cipher, body, sink); err != nil {
		return nil, err
	}
	req.move(StateCommitting)

	return &models.FileRecord{
		ID:          models.NoID,
		DisplayName: rec.DisplayName,
		MimeType:    rec.MimeType,
		Locator:     resolved,
		Size:        rec.Cipher.Size,
		Encrypted:   false,
	}, nil
}

// Result is the single completion of an asynchronous request.
type Result struct {
	Record *models.FileRecord
	Err    error
}

// EncryptAsync runs Encrypt in the background. The channel yields exactly
// one Result and is then closed.
func (c *Coordinator) EncryptAsync(ctx context.Context, source string) <-chan Result {
	return c.async(func() (*models.FileRecord, error) {
		return c.Encrypt(ctx, source)
	})
}

// DecryptAsync runs Decrypt in the background. The channel yields exactly
// one Result and is then closed.
func (c *Coordinator) DecryptAsync(ctx context.Context, rec *models.FileRecord, destination string) <-chan Result {
	return c.async(func() (*models.FileRecord, error) {
		return c.Decrypt(ctx, rec, destination)
	})
}

func (c *Coordinator) async(fn func() (*models.FileRecord, error)) <-chan Result {
	out := make(chan Result, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(out)
		rec, err := fn()
		out <- Result{Record: rec, Err: err}
	}()
	return out
}

// Wait blocks until every asynchronous request has completed.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) ListFiles(ctx context.Context) ([]*models.FileRecord, error) {
	recs, err := c.ledger.List(ctx)
	if err != nil {
		return nil, classify(OpList, err)
	}
	return recs, nil
}

func (c *Coordinator) GetFile(ctx context.Context, id int64) (*models.FileRecord, error) {
	rec, err := c.ledger.Get(ctx, id)
	if err != nil {
		return nil, classify(OpGet, err)
	}
	return rec, nil
}

// DeleteFile removes the blob and then the record. It reports false when no
// such record exists. If the blob cannot be removed the record is kept.
func (c *Coordinator) DeleteFile(ctx context.Context, id int64) (bool, error) {
	rec, err := c.ledger.Get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, classify(OpDelete, err)
	}

	if rec.Encrypted {
		err := c.blobs.Remove(ctx, rec.Locator)
		if errors.Is(err, common.ErrorNotFound) {
			c.log.Warn(ctx, "blob already missing", "id", id, "locator", rec.Locator)
		} else if err != nil {
			return false, classify(OpDelete, err)
		}
	}

	ok, err := c.ledger.Delete(ctx, id)
	if err != nil {
		return false, classify(OpDelete, err)
	}

	c.log.Info(ctx, "file deleted", "id", id)
	return ok, nil
}
