package keys

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxAttempts     = 3
	DefaultAttemptInterval = time.Second

	unlockReason   = "Authenticate to unlock the vault key"
	generateReason = "Authenticate to create the vault key"
)

// GatedProvider releases the master key only after the user presents the
// enrolled credential. The key is stored wrapped under a key derived from
// that credential and bound to the enrollment id, so enrolling a new
// credential permanently invalidates it.
type GatedProvider struct {
	auth        Authenticator
	enrollments EnrollmentStore
	store       KeyStore
	limiter     *rate.Limiter
	maxAttempts int
	log         logging.Logger
}

type Option func(*GatedProvider)

func WithMaxAttempts(n int) Option {
	return func(p *GatedProvider) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithAttemptLimit sets how often a credential may be tried.
func WithAttemptLimit(l rate.Limit) Option {
	return func(p *GatedProvider) {
		p.limiter = rate.NewLimiter(l, 1)
	}
}

func NewGatedProvider(auth Authenticator, enrollments EnrollmentStore, store KeyStore, log logging.Logger, opts ...Option) *GatedProvider {
	p := &GatedProvider{
		auth:        auth,
		enrollments: enrollments,
		store:       store,
		limiter:     rate.NewLimiter(rate.Every(DefaultAttemptInterval), 1),
		maxAttempts: DefaultMaxAttempts,
		log:         log.With("module", "keys", "store", store.Name()),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *GatedProvider) Name() string {
	return "gated/" + p.store.Name()
}

func (p *GatedProvider) Eligible(ctx context.Context) error {
	_, err := p.eligible(ctx)
	return err
}

func (p *GatedProvider) eligible(ctx context.Context) (*Enrollment, error) {
	if p.auth == nil || !p.auth.Available() {
		return nil, unavailable(ReasonNoSensor)
	}
	if err := p.store.Probe(); err != nil {
		return nil, err
	}
	if !p.auth.Secure() {
		return nil, unavailable(ReasonNoSecureLock)
	}

	e, err := p.enrollments.LoadEnrollment(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, unavailable(ReasonNoEnrollment)
	}
	return e, nil
}

func (p *GatedProvider) Exists(ctx context.Context) (bool, error) {
	_, err := p.store.Load(ctx)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Generate creates a fresh master key and stores it wrapped. Any previous
// key is overwritten.
func (p *GatedProvider) Generate(ctx context.Context) error {
	e, err := p.eligible(ctx)
	if err != nil {
		return err
	}

	kek, err := p.authenticate(ctx, e, generateReason)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(kek)

	key := common.GenerateRandByteArray(common.MasterKeySize)
	defer common.WipeByteArray(key)

	wrapped, err := cryptox.WrapKey(key, kek, []byte(e.ID))
	if err != nil {
		return storeErr("wrap key", err)
	}

	if err := p.store.Save(ctx, wrapped); err != nil {
		return err
	}

	p.log.Info(ctx, "master key generated")
	return nil
}

// Unlock authenticates the user and returns the raw master key. The caller
// owns the returned slice and must wipe it.
func (p *GatedProvider) Unlock(ctx context.Context) ([]byte, error) {
	e, err := p.eligible(ctx)
	if err != nil {
		return nil, err
	}

	wrapped, err := p.store.Load(ctx)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: no key material stored", ErrKeyInvalidated)
	}
	if err != nil {
		return nil, err
	}

	kek, err := p.authenticate(ctx, e, unlockReason)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(kek)

	key, err := cryptox.UnwrapKey(wrapped, kek, []byte(e.ID))
	if err != nil {
		p.log.Warn(ctx, "stored key does not match the current enrollment")
		return nil, fmt.Errorf("%w: %w", ErrKeyInvalidated, err)
	}
	return key, nil
}

func (p *GatedProvider) Reset(ctx context.Context) error {
	return p.store.Delete(ctx)
}

// Enroll registers credential as the only accepted one. Keys wrapped under
// an earlier enrollment can no longer be unlocked.
func (p *GatedProvider) Enroll(ctx context.Context, credential []byte) error {
	if len(credential) == 0 {
		return ErrAuthCancelled
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	kek := cryptox.DeriveMasterKey(credential, salt)
	defer common.WipeByteArray(kek)

	e := &Enrollment{
		ID:       uuid.NewString(),
		Salt:     salt,
		Verifier: cryptox.MakeVerifier(kek),
	}
	if err := p.enrollments.SaveEnrollment(ctx, e); err != nil {
		return err
	}

	p.log.Info(ctx, "credential enrolled", "enrollment", e.ID)
	return nil
}

// authenticate prompts until the credential matches the enrollment and
// returns the derived key-encryption key.
func (p *GatedProvider) authenticate(ctx context.Context, e *Enrollment, reason string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthCancelled, err)
		}

		cred, err := p.auth.Prompt(ctx, reason)
		if err != nil {
			return nil, err
		}

		kek := cryptox.DeriveMasterKey(cred, e.Salt)
		common.WipeByteArray(cred)

		if subtle.ConstantTimeCompare(cryptox.MakeVerifier(kek), e.Verifier) == 1 {
			return kek, nil
		}
		common.WipeByteArray(kek)

		p.log.Warn(ctx, "credential rejected", "attempt", attempt)
		if attempt >= p.maxAttempts {
			return nil, fmt.Errorf("%w: too many failed attempts", ErrAuthCancelled)
		}
	}
}
