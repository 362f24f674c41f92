package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalAuthenticator reads the credential from a terminal without echo.
type TerminalAuthenticator struct {
	in  *os.File
	out io.Writer

	readPassword func(fd int) ([]byte, error)
	isTerminal   func(fd int) bool
}

func NewTerminalAuthenticator(in *os.File, out io.Writer) *TerminalAuthenticator {
	return &TerminalAuthenticator{
		in:           in,
		out:          out,
		readPassword: term.ReadPassword,
		isTerminal:   term.IsTerminal,
	}
}

func (a *TerminalAuthenticator) Available() bool {
	return a.in != nil
}

func (a *TerminalAuthenticator) Secure() bool {
	return a.in != nil && a.isTerminal(int(a.in.Fd()))
}

type promptResult struct {
	cred []byte
	err  error
}

// Prompt blocks until the user answers or ctx ends. Empty input counts as a
// cancellation.
func (a *TerminalAuthenticator) Prompt(ctx context.Context, reason string) ([]byte, error) {
	fmt.Fprintf(a.out, "%s\nCredential: ", reason)

	done := make(chan promptResult, 1)
	go func() {
		cred, err := a.readPassword(int(a.in.Fd()))
		done <- promptResult{cred: cred, err: err}
	}()

	var res promptResult
	select {
	case <-ctx.Done():
		fmt.Fprintln(a.out)
		return nil, fmt.Errorf("%w: %w", ErrAuthCancelled, ctx.Err())
	case res = <-done:
	}
	fmt.Fprintln(a.out)

	if errors.Is(res.err, io.EOF) || (res.err == nil && len(res.cred) == 0) {
		return nil, ErrAuthCancelled
	}
	if res.err != nil {
		return nil, fmt.Errorf("read credential: %w", res.err)
	}
	return res.cred, nil
}

type credentialKey struct{}

// WithCredential attaches a credential to ctx for ContextAuthenticator.
func WithCredential(ctx context.Context, cred []byte) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// ContextAuthenticator answers prompts with the credential carried by the
// request context. It serves callers that authenticate out of band, such as
// the control API.
type ContextAuthenticator struct{}

func (ContextAuthenticator) Available() bool { return true }

func (ContextAuthenticator) Secure() bool { return true }

func (ContextAuthenticator) Prompt(ctx context.Context, _ string) ([]byte, error) {
	cred, _ := ctx.Value(credentialKey{}).([]byte)
	if len(cred) == 0 {
		return nil, ErrAuthCancelled
	}

	out := make([]byte, len(cred))
	copy(out, cred)
	return out, nil
}
