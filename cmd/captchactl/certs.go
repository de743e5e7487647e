package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atinyakov/GridCaptcha/internal/auth"
	"github.com/atinyakov/GridCaptcha/internal/certgen"
	"github.com/spf13/cobra"
)

func newCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "TLS certificate management",
	}

	var (
		dir   string
		hosts []string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a CA and a server certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := certgen.Bootstrap(dir, hosts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Certificates generated into %s\n", dir)
			return nil
		},
	}
	initCmd.Flags().StringVar(&dir, "dir", "certs", "output directory")
	initCmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "server host names or IPs")
	cmd.AddCommand(initCmd)

	return cmd
}

func newOperatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Issue operator credentials",
	}
	cmd.AddCommand(newOperatorCertCmd())
	cmd.AddCommand(newOperatorTokenCmd())
	return cmd
}

func newOperatorCertCmd() *cobra.Command {
	var caDir, out string
	cmd := &cobra.Command{
		Use:   "cert <name>",
		Short: "Issue a client certificate for an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			caCert, caKey, err := certgen.LoadCACredentials(
				filepath.Join(caDir, certgen.CACertFile),
				filepath.Join(caDir, certgen.CAKeyFile),
			)
			if err != nil {
				return err
			}
			certPEM, keyPEM, err := certgen.GenerateOperatorCertificate(name, caCert, caKey)
			if err != nil {
				return err
			}
			certPath := filepath.Join(out, name+".crt")
			keyPath := filepath.Join(out, name+".key")
			if err := certgen.WritePair(certPath, keyPath, certPEM, keyPEM); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Operator certificate written to %s and %s\n", certPath, keyPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&caDir, "ca-dir", "certs", "directory holding ca.crt and ca.key")
	cmd.Flags().StringVar(&out, "out", ".", "output directory")
	return cmd
}

func newOperatorTokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <email>",
		Short: "Sign an operator bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("OPERATOR_SECRET")
			}
			tok, err := auth.GenerateToken([]byte(secret), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "operator JWT secret (default $OPERATOR_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
