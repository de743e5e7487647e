package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout bounds every request made by clients built here.
const DefaultTimeout = 10 * time.Second

func loadPool(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	return caPool, nil
}

// LoadCAClient returns an HTTP client that trusts only the server CA in
// caFile. Relying parties and bearer-token operators use it.
func LoadCAClient(caFile string) (*http.Client, error) {
	caPool, err := loadPool(caFile)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{TLSClientConfig: &tls.Config{RootCAs: caPool}}
	return &http.Client{Transport: transport, Timeout: DefaultTimeout}, nil
}

// LoadClientCertificate returns an HTTP client that presents the operator
// certificate in certFile/keyFile and trusts the server CA in caFile.
func LoadClientCertificate(certFile, keyFile, caFile string) (*http.Client, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert/key: %w", err)
	}
	caPool, err := loadPool(caFile)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      caPool,
		},
	}
	return &http.Client{Transport: transport, Timeout: DefaultTimeout}, nil
}
