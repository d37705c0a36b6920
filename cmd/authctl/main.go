// Command authctl issues and inspects credentials offline: password hashes for
// seeding accounts and signed access tokens for debugging.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shiftdesk/shiftdesk/internal/app"
	"github.com/shiftdesk/shiftdesk/internal/auth"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:          "authctl",
		Short:        "Password hashing and access token tools",
		SilenceUsage: true,
	}
	root.AddCommand(hashPasswordCmd(getenv), issueTokenCmd(getenv), verifyTokenCmd(getenv))
	return root
}

func hashPasswordCmd(getenv func(string) string) *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Hash a password with bcrypt (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cost") {
				if raw := getenv("BCRYPT_COST"); raw != "" {
					parsed, err := strconv.Atoi(raw)
					if err != nil {
						return fmt.Errorf("BCRYPT_COST: %w", err)
					}
					cost = parsed
				}
			}
			hasher, err := auth.NewHasher(cost)
			if err != nil {
				return err
			}
			password, err := argOrStdin(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", auth.DefaultHashCost, "bcrypt work factor (env BCRYPT_COST)")
	return cmd
}

func issueTokenCmd(getenv func(string) string) *cobra.Command {
	var (
		subject string
		ttl     string
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign an access token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl == "" {
				ttl = getenv("JWT_EXPIRES_IN")
			}
			if ttl == "" {
				ttl = "7d"
			}
			var d app.Duration
			if err := d.Decode(ttl); err != nil {
				return fmt.Errorf("ttl: %w", err)
			}
			issuer, err := auth.NewTokenIssuer([]byte(getenv("JWT_SECRET")), d.Std())
			if err != nil {
				return err
			}
			token, err := issuer.Issue(subject, d.Std())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token.Value)
			fmt.Fprintf(out, "expires_at=%s\n", token.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id to place in the sub claim")
	cmd.Flags().StringVar(&ttl, "ttl", "", "token lifetime, e.g. 1h or 7d (env JWT_EXPIRES_IN)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func verifyTokenCmd(getenv func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Verify a token and print its subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, err := auth.NewTokenIssuer([]byte(getenv("JWT_SECRET")), auth.DefaultTokenTTL)
			if err != nil {
				return err
			}
			subject, err := issuer.Verify(strings.TrimSpace(args[0]))
			if err != nil {
				if kind, ok := auth.TokenFailureOf(err); ok {
					return fmt.Errorf("token rejected: %s", kind)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subject=%s\n", subject)
			return nil
		},
	}
}

func argOrStdin(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
