package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/baechuer/notes-service/internal/application/auth"
	"github.com/baechuer/notes-service/internal/config"
	"github.com/baechuer/notes-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/notes-service/internal/infrastructure/security"
	"github.com/baechuer/notes-service/internal/logger"
)

var Version = "dev"

func main() {
	logger.Init()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notesctl",
		Short:         "Operational tooling for the notes service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(issueTokenCmd())
	rootCmd.AddCommand(verifyTokenCmd())
	rootCmd.AddCommand(genPasscodeCmd())

	return rootCmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Run database migrations against DB_ADDR",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, _ := cmd.Flags().GetString("dsn")
			if dsn == "" {
				return fmt.Errorf("DB_ADDR (or --dsn) is required")
			}

			db, err := config.NewDB(dsn, false, logger.Logger)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if err := postgres.Migrate(ctx, db, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", args[0])
			return nil
		},
	}

	cmd.Flags().String("dsn", os.Getenv("DB_ADDR"), "postgres connection string")

	return cmd
}

func signerFlags(cmd *cobra.Command) {
	cmd.Flags().String("secret", os.Getenv("JWT_SECRET"), "HMAC secret (defaults to $JWT_SECRET)")
	cmd.Flags().String("issuer", envOr("JWT_ISSUER", "notes-service"), "token issuer")
}

func signerFromFlags(cmd *cobra.Command, ttl time.Duration) (*security.JWTSigner, error) {
	secret, _ := cmd.Flags().GetString("secret")
	issuer, _ := cmd.Flags().GetString("issuer")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET (or --secret) is required")
	}
	return security.NewJWTSigner(secret, issuer, ttl), nil
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue a session token for a user id (local testing)",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user-id")
			email, _ := cmd.Flags().GetString("email")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}

			signer, err := signerFromFlags(cmd, ttl)
			if err != nil {
				return err
			}
			tok, exp, err := signer.Issue(userID, email)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	signerFlags(cmd)
	cmd.Flags().String("user-id", "", "subject user id")
	cmd.Flags().String("email", "", "email claim")
	cmd.Flags().Duration("ttl", 168*time.Hour, "token lifetime")

	return cmd
}

func verifyTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-token [token]",
		Short: "Verify a session token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signerFromFlags(cmd, time.Hour)
			if err != nil {
				return err
			}
			claims, err := signer.Verify(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user_id: %s\n", claims.UserID)
			fmt.Fprintf(out, "email:   %s\n", claims.Email)
			fmt.Fprintf(out, "expires: %s\n", claims.Exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	signerFlags(cmd)

	return cmd
}

func genPasscodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen-passcode",
		Short: "Generate a passcode, optionally with its stored hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			withHash, _ := cmd.Flags().GetBool("hash")
			cost, _ := cmd.Flags().GetInt("cost")

			code, err := auth.NewPasscodeIssuer(auth.DefaultPasscodeTTL).Generate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)

			if withHash {
				h, err := security.NewBcryptHasher(cost).Hash(code)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		},
	}

	cmd.Flags().Bool("hash", false, "also print the bcrypt hash")
	cmd.Flags().Int("cost", 10, "bcrypt cost")

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
