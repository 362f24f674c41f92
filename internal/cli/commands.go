package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/encrypter/internal/buildinfo"
	"github.com/dmitrijs2005/encrypter/internal/keys"
	"github.com/dmitrijs2005/encrypter/internal/vault"
	"github.com/spf13/cobra"
)

var errCredentialMismatch = errors.New("credentials do not match")

func newInitCommand(e *env) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the vault key",
		Long: `Creates the vault key if it does not exist yet.

With --reset the current key is discarded first. Files encrypted with it can
no longer be decrypted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if reset {
				if err := e.app.Keys.Reset(ctx); err != nil {
					return err
				}
			}

			st, err := e.app.Keys.EnsureKey(ctx)
			if err != nil {
				return err
			}

			switch st {
			case keys.KeyCreated:
				fmt.Fprintln(e.out, "Vault key created.")
				fmt.Fprintln(e.errOut, "Warning: files encrypted before this key was created cannot be decrypted.")
			default:
				fmt.Fprintln(e.out, "Vault key already exists.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "discard the current key and create a new one")
	return cmd
}

func newEnrollCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll",
		Short: "Set the credential that unlocks the vault key",
		Long: `Sets the credential that unlocks the vault key.

Enrolling again invalidates the existing key; run 'init --reset' afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a := e.authenticator(e.in, e.errOut)

			first, err := a.Prompt(ctx, "New credential")
			if err != nil {
				return err
			}
			defer clear(first)

			second, err := a.Prompt(ctx, "Repeat credential")
			if err != nil {
				return err
			}
			defer clear(second)

			if !bytes.Equal(first, second) {
				return errCredentialMismatch
			}

			if err := e.app.Provider.Enroll(ctx, first); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Credential enrolled.")
			return nil
		},
	}
}

func newEncryptCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "encrypt [flags] files...",
		Aliases: []string{"enc"},
		Short:   "Encrypt files into the vault",
		Long:    "Encrypts each file into the vault and prints its record. Use - to read standard input.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pending := make([]<-chan vault.Result, len(args))
			for i, src := range args {
				pending[i] = e.app.Vault.EncryptAsync(ctx, src)
			}

			failed := 0
			for i, ch := range pending {
				res := <-ch
				if res.Err != nil {
					fmt.Fprintf(e.errOut, "%s: %s\n", args[i], vault.Explain(res.Err))
					failed++
					continue
				}
				fmt.Fprintln(e.out, res.Record)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

func newDecryptCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "decrypt [flags] id destination",
		Aliases: []string{"dec"},
		Short:   "Decrypt a vault file",
		Long: `Decrypts the vault file with the given id to destination.

If destination is a directory the stored file name is used. Use - to write to
standard output.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			rec, err := e.app.Vault.GetFile(ctx, id)
			if err != nil {
				return err
			}

			res := <-e.app.Vault.DecryptAsync(ctx, rec, args[1])
			if res.Err != nil {
				return res.Err
			}
			if args[1] != "-" {
				fmt.Fprintln(e.errOut, "Decrypted to", res.Record.Locator)
			}
			return nil
		},
	}
}

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List vault files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := e.app.Vault.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(e.out, "No files.")
				return nil
			}
			for _, r := range recs {
				fmt.Fprintln(e.out, r)
			}
			return nil
		},
	}
}

func newDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete id",
		Aliases: []string{"rm"},
		Short:   "Delete a vault file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			deleted, err := e.app.Vault.DeleteFile(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintf(e.out, "No file with id %d.\n", id)
				return nil
			}
			fmt.Fprintf(e.out, "Deleted %d.\n", id)
			return nil
		},
	}
}

func newTokenCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "token client-id",
		Short: "Issue an access token for the vault daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tok, err := e.app.IssueToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, tok)
			return nil
		},
	}
}

func newVersionCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(*cobra.Command, []string) {
			buildinfo.PrintBuildData(e.out)
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
