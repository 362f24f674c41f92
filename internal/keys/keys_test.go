package keys

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/encrypter/internal/dbx"
	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/dmitrijs2005/encrypter/internal/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newMetadataStore(t *testing.T) *MetadataStore {
	t.Helper()
	db, m, err := repomanager.Open(context.Background(), repomanager.DriverSQLite, filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMetadataStore(dbx.NewSerial(db), m)
}

// scriptedAuth answers prompts from a fixed list; when the list runs out it
// keeps repeating the last answer.
type scriptedAuth struct {
	mu        sync.Mutex
	available bool
	secure    bool
	answers   []string
	err       error
	prompts   int
}

func newScriptedAuth(answers ...string) *scriptedAuth {
	return &scriptedAuth{available: true, secure: true, answers: answers}
}

func (a *scriptedAuth) Available() bool { return a.available }
func (a *scriptedAuth) Secure() bool    { return a.secure }

func (a *scriptedAuth) Prompt(_ context.Context, _ string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.prompts++
	if a.err != nil {
		return nil, a.err
	}
	if len(a.answers) == 0 {
		return nil, ErrAuthCancelled
	}
	ans := a.answers[0]
	if len(a.answers) > 1 {
		a.answers = a.answers[1:]
	}
	return []byte(ans), nil
}

func (a *scriptedAuth) setAnswers(answers ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = answers
}

func (a *scriptedAuth) promptCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prompts
}

func newTestProvider(t *testing.T, auth Authenticator, opts ...Option) (*GatedProvider, *MetadataStore) {
	t.Helper()
	ms := newMetadataStore(t)
	opts = append([]Option{WithAttemptLimit(rate.Inf)}, opts...)
	return NewGatedProvider(auth, ms, ms, discardLogger(), opts...), ms
}
