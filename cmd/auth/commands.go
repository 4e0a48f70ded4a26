package main

//go:generate swag init -g internal/auth/http/router.go -d ../.. -o ../../api/auth --parseDependency

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/app"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "auth",
		Short:         "Tollgate OAuth2 authorization server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       app.BuildVersion,
		RunE:          runServe,
	}

	root.AddCommand(
		newServeCmd(),
		newPKCECmd(),
		newHashSecretCmd(),
		newHealthCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization server (default)",
		Long:  "Run the authorization server. Configuration is read from the environment and an optional .env file.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(cmd.Context())
}

func newPKCECmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "pkce",
		Short: "Generate a PKCE code verifier and S256 challenge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := authsdk.GeneratePKCEChallenge()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"code_verifier":         p.Verifier,
					"code_challenge":        p.Challenge,
					"code_challenge_method": p.Method,
				})
			}
			fmt.Fprintf(out, "code_verifier=%s\ncode_challenge=%s\ncode_challenge_method=%s\n",
				p.Verifier, p.Challenge, p.Method)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret [secret]",
		Short: "Hash a client secret or password with argon2id",
		Long:  "Hash a client secret or password with argon2id for use in the clients or users file. The secret is read from stdin when not given as an argument.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			hash, err := cryptox.HashSecret(secret)
			if err != nil {
				return fmt.Errorf("hash secret: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the readiness of a running server",
		Long:  "Query /readyz on a running server and exit non-zero unless the grant store answers. Suitable for container health checks.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := authsdk.NewSDKClient(baseURL)
			client.HTTPClient.Timeout = timeout
			res, err := client.Readiness(ctx)
			if res != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "status=%s version=%s", res.Status, res.Version)
				if res.Checks != nil {
					fmt.Fprintf(cmd.OutOrStdout(), " driver=%s store=%s", res.Checks.Driver, res.Checks.Store)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the server")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func readSecret(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty secret")
	}
	return secret, nil
}
