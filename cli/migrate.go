package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/onnwee/chatpulse/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	var dryRun bool
	sealCmd := &cobra.Command{
		Use:   "seal-tokens",
		Short: "Encrypt OAuth tokens stored before TOKEN_ENCRYPTION_KEY was set",
		Long: `seal-tokens encrypts every plaintext row in oauth_tokens with
TOKEN_ENCRYPTION_KEY (base64, 32 bytes; openssl rand -base64 32).

Examples:
  chatpulse migrate seal-tokens --dry-run
  chatpulse migrate seal-tokens`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.TokenEncryptionKey == "" {
				return errors.New("TOKEN_ENCRYPTION_KEY is required to seal tokens")
			}
			ts, err := a.tokenStore(nil)
			if err != nil {
				return err
			}
			dbx, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(dbx)
			providers, err := db.SealPlaintextTokens(cmd.Context(), dbx, ts.Sealer, dryRun)
			if err != nil {
				return err
			}
			verb := "sealed"
			if dryRun {
				verb = "would seal"
			}
			for _, p := range providers {
				if _, err := fmt.Fprintf(a.out, "%s %s\n", verb, p); err != nil {
					return err
				}
			}
			slog.Info("token sealing finished", slog.Int("tokens", len(providers)), slog.Bool("dry_run", dryRun))
			return nil
		},
	}
	sealCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the tokens that would be sealed without changing them")
	cmd.AddCommand(sealCmd)
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dbx, err := a.openDB(cmd.Context())
				if err != nil {
					return err
				}
				defer closeDB(dbx)
				return a.printVersion(dbx)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration (drops all chatpulse tables)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dbx, err := a.connectDB(cmd.Context(), a.cfg.DBDsn)
				if err != nil {
					return err
				}
				defer closeDB(dbx)
				if err := db.MigrateDown(cmd.Context(), dbx); err != nil {
					return err
				}
				slog.Info("migrations rolled back")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dbx, err := a.connectDB(cmd.Context(), a.cfg.DBDsn)
				if err != nil {
					return err
				}
				defer closeDB(dbx)
				return a.printVersion(dbx)
			},
		},
	)
	return cmd
}

func (a *app) printVersion(dbx *sql.DB) error {
	v, dirty, err := db.MigrationVersion(dbx)
	if err != nil {
		return err
	}
	if dirty {
		_, err = fmt.Fprintf(a.out, "schema version %d (dirty)\n", v)
		return err
	}
	_, err = fmt.Fprintf(a.out, "schema version %d\n", v)
	return err
}
