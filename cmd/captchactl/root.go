package main

import (
	"cmp"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/atinyakov/GridCaptcha/internal/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// connFlags select the server and the credentials used to reach it.
type connFlags struct {
	server string
	caFile string
	cert   string
	key    string
	bearer string
}

// fromEnv fills values not given on the command line.
func (f *connFlags) fromEnv(cmd *cobra.Command) {
	if !cmd.Flags().Changed("server") {
		f.server = cmp.Or(os.Getenv("CAPTCHA_SERVER"), f.server)
	}
	if f.bearer == "" {
		f.bearer = os.Getenv("CAPTCHA_OPERATOR_TOKEN")
	}
}

func (f *connFlags) httpClient() (*http.Client, error) {
	switch {
	case f.cert != "" && f.key != "":
		return client.LoadClientCertificate(f.cert, f.key, f.caFile)
	case f.caFile != "":
		return client.LoadCAClient(f.caFile)
	default:
		return nil, nil
	}
}

func (f *connFlags) client() (*client.Client, error) {
	hc, err := f.httpClient()
	if err != nil {
		return nil, err
	}
	c := client.New(f.server, hc)
	if f.bearer != "" {
		c = c.WithBearer(f.bearer)
	}
	return c, nil
}

func NewRootCmd() *cobra.Command {
	conn := &connFlags{}

	cmd := &cobra.Command{
		Use:   "captchactl",
		Short: "Manage and exercise a GridCaptcha server",
		Long: `captchactl bootstraps TLS material, issues operator certificates and
tokens, and calls the public verify and validate endpoints.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			conn.fromEnv(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&conn.server, "server", "http://localhost:8080", "server base URL (env CAPTCHA_SERVER)")
	pf.StringVar(&conn.caFile, "ca", "", "CA certificate that signed the server certificate")
	pf.StringVar(&conn.cert, "cert", "", "operator client certificate")
	pf.StringVar(&conn.key, "key", "", "operator client key")
	pf.StringVar(&conn.bearer, "bearer", "", "operator bearer token (env CAPTCHA_OPERATOR_TOKEN)")

	cmd.AddCommand(newCertsCmd())
	cmd.AddCommand(newOperatorCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newValidateCmd(conn))
	cmd.AddCommand(newVerifyCmd(conn))

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
