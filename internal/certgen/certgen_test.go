package certgen

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func parseCert(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatalf("cert PEM invalid")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	return cert
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// setupTestCA writes a fresh CA into a temp dir and loads it back.
func setupTestCA(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	certPEM, keyPEM, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	dir := t.TempDir()
	certPath, keyPath = filepath.Join(dir, CACertFile), filepath.Join(dir, CAKeyFile)
	if err := WritePair(certPath, keyPath, certPEM, keyPEM); err != nil {
		t.Fatalf("WritePair: %v", err)
	}
	return certPath, keyPath
}

func TestLoadCACredentials_Success(t *testing.T) {
	certPath, keyPath := setupTestCA(t)

	caCert, caKey, err := LoadCACredentials(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadCACredentials error: %v", err)
	}
	if caCert.Subject.CommonName != "Test CA" || !caCert.IsCA {
		t.Errorf("CA = %q IsCA=%v", caCert.Subject.CommonName, caCert.IsCA)
	}
	if _, ok := caKey.(*ecdsa.PrivateKey); !ok {
		t.Fatalf("key type = %T; want *ecdsa.PrivateKey", caKey)
	}
}

func TestLoadCACredentials_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "RSA CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	certPath := writeTemp(t, "ca.crt", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPath := writeTemp(t, "ca.key", pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))

	caCert, caKey, err := LoadCACredentials(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadCACredentials error: %v", err)
	}
	certPEM, _, err := GenerateOperatorCertificate("alice", caCert, caKey)
	if err != nil {
		t.Fatalf("GenerateOperatorCertificate: %v", err)
	}
	if err := parseCert(t, certPEM).CheckSignatureFrom(caCert); err != nil {
		t.Errorf("signature check failed: %v", err)
	}
}

func TestLoadCACredentials_Errors(t *testing.T) {
	certPath, keyPath := setupTestCA(t)
	caCert, caKey := mustLoad(t, certPath, keyPath)
	leafPEM, leafKey, err := GenerateOperatorCertificate("bob", caCert, caKey)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		certPath string
		keyPath  string
		want     string
	}{
		{"missing cert", "/no/such/file.pem", keyPath, "read ca cert"},
		{"missing key", certPath, "/no/such/key.pem", "read ca key"},
		{"bad cert", writeTemp(t, "bad.crt", []byte("not a cert")), keyPath, "invalid CA cert PEM"},
		{"bad key", certPath, writeTemp(t, "bad.key", []byte("not a key")), "invalid CA key PEM"},
		{"not a CA", writeTemp(t, "leaf.crt", leafPEM), writeTemp(t, "leaf.key", leafKey), "not a CA"},
		{"key type", certPath, writeTemp(t, "odd.key", pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: []byte{1}})), "unsupported key type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadCACredentials(tt.certPath, tt.keyPath)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v; want error containing %q", err, tt.want)
			}
		})
	}
}

// loadTestCA is setupTestCA followed by mustLoad.
func loadTestCA(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	certPath, keyPath := setupTestCA(t)
	return mustLoad(t, certPath, keyPath)
}

func mustLoad(t *testing.T, certPath, keyPath string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	caCert, caKey, err := LoadCACredentials(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadCACredentials: %v", err)
	}
	return caCert, caKey.(*ecdsa.PrivateKey)
}

func TestGenerateOperatorCertificate(t *testing.T) {
	caCert, caKey := loadTestCA(t)

	certPEM, keyPEM, err := GenerateOperatorCertificate("ops@example.com", caCert, caKey)
	if err != nil {
		t.Fatalf("GenerateOperatorCertificate error: %v", err)
	}
	cert := parseCert(t, certPEM)
	if cert.Subject.CommonName != "ops@example.com" {
		t.Errorf("CommonName = %q", cert.Subject.CommonName)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	if _, err := cert.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}}); err != nil {
		t.Errorf("client chain does not verify: %v", err)
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		t.Fatalf("key PEM invalid")
	}
	if _, err := x509.ParseECPrivateKey(block.Bytes); err != nil {
		t.Errorf("parse private key failed: %v", err)
	}

	if _, _, err := GenerateOperatorCertificate("", caCert, caKey); err == nil {
		t.Error("expected error for empty operator")
	}
}

func TestGenerateServerCertificate(t *testing.T) {
	caCert, caKey := loadTestCA(t)

	certPEM, _, err := GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, caCert, caKey)
	if err != nil {
		t.Fatalf("GenerateServerCertificate: %v", err)
	}
	cert := parseCert(t, certPEM)
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" || len(cert.IPAddresses) != 1 {
		t.Errorf("SANs = %v %v", cert.DNSNames, cert.IPAddresses)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	for _, host := range []string{"localhost", "127.0.0.1"} {
		if _, err := cert.Verify(x509.VerifyOptions{Roots: roots, DNSName: host}); err != nil {
			t.Errorf("verify for %s: %v", host, err)
		}
	}

	if _, _, err := GenerateServerCertificate(nil, caCert, caKey); err == nil {
		t.Error("expected error for no hosts")
	}
}

func TestBootstrap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := Bootstrap(dir, []string{"localhost"}); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	for _, name := range []string{CACertFile, CAKeyFile, ServerCertFile, ServerKeyFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	info, err := os.Stat(filepath.Join(dir, ServerKeyFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("server key perm = %o; want 600", perm)
	}

	caCert, _ := mustLoad(t, filepath.Join(dir, CACertFile), filepath.Join(dir, CAKeyFile))
	certPEM, err := os.ReadFile(filepath.Join(dir, ServerCertFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := parseCert(t, certPEM).CheckSignatureFrom(caCert); err != nil {
		t.Errorf("server cert not signed by CA: %v", err)
	}
}
