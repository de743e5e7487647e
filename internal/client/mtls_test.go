package client

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// helper: generate a self-signed CA cert and key
func generateCACert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	certTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, certTmpl, certTmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func hasSubject(pool *x509.CertPool, cn string) bool {
	for _, subj := range pool.Subjects() {
		if bytes.Contains(subj, []byte(cn)) {
			return true
		}
	}
	return false
}

func TestLoadCAClient(t *testing.T) {
	tmp := t.TempDir()
	caPEM, _ := generateCACert(t)

	client, err := LoadCAClient(write(t, tmp, "ca.pem", caPEM))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tcfg := client.Transport.(*http.Transport).TLSClientConfig
	if len(tcfg.Certificates) != 0 {
		t.Errorf("expected no client certificate, got %d", len(tcfg.Certificates))
	}
	if !hasSubject(tcfg.RootCAs, "Test CA") {
		t.Error("CA certificate not found in RootCAs")
	}
	if client.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v; want %v", client.Timeout, DefaultTimeout)
	}
}

func TestLoadCAClient_Errors(t *testing.T) {
	if _, err := LoadCAClient("nonexistent.pem"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not exist error, got %v", err)
	}
	bad := write(t, t.TempDir(), "ca.pem", []byte("invalid pem"))
	if _, err := LoadCAClient(bad); err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse CA error, got %v", err)
	}
}

func TestLoadClientCertificate(t *testing.T) {
	// use the same self-signed cert as client cert and CA
	certPEM, keyPEM := generateCACert(t)
	tmp := t.TempDir()
	certPath := write(t, tmp, "operator.crt", certPEM)
	keyPath := write(t, tmp, "operator.key", keyPEM)
	caPath := write(t, tmp, "ca.pem", certPEM)

	client, err := LoadClientCertificate(certPath, keyPath, caPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tcfg := client.Transport.(*http.Transport).TLSClientConfig
	if len(tcfg.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(tcfg.Certificates))
	}
	if !hasSubject(tcfg.RootCAs, "Test CA") {
		t.Error("CA certificate not found in RootCAs")
	}
}

func TestLoadClientCertificate_MissingKey(t *testing.T) {
	certPEM, _ := generateCACert(t)
	tmp := t.TempDir()
	certPath := write(t, tmp, "operator.crt", certPEM)

	_, err := LoadClientCertificate(certPath, filepath.Join(tmp, "missing.key"), certPath)
	if err == nil || !strings.Contains(err.Error(), "failed to load client cert/key") {
		t.Errorf("expected key load error, got %v", err)
	}
}
