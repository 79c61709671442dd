// Package test holds fixtures shared by the package tests: throwaway RSA certificates,
// PKCS#12 containers and signed documents.
package test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// Payload is the serialization of Document without its signature container.
const Payload = `<Root><Data name="Asha Rao" dob="01-01-1990" gender="F"/></Root>`

// DocumentTemplate is a minimal export; %s receives the base64 signature.
const DocumentTemplate = `<Root><Data name="Asha Rao" dob="01-01-1990" gender="F"/><Signature><Value>%s</Value></Signature></Root>`

// UnsignedExport mirrors the layout of an offline paperless KYC export before signing.
const UnsignedExport = `<?xml version="1.0" encoding="UTF-8"?>
<OfflinePaperlessKyc referenceId="123420181031130000000">
  <UidData>
    <Poi dob="05-05-1985" e="" gender="M" m="" name="Ravi Kumar"/>
    <Poa careof="S/O Mohan" country="India" dist="Pune" house="12" pc="411001" state="Maharashtra"/>
    <Pht>iVBORw0KGgo=</Pht>
  </UidData>
</OfflinePaperlessKyc>
`

// NewCertificate generates a self-signed RSA certificate and its private key.
func NewCertificate(t testing.TB) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("failed to generate serial: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "Test Offline Signer",
			Organization: []string{"Test Issuer"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	return cert, key
}

// CertificatePEM encodes cert as a PEM CERTIFICATE block.
func CertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// P12 encodes cert and key as a PKCS#12 container.
func P12(t testing.TB, cert *x509.Certificate, key *rsa.PrivateKey, password string) []byte {
	t.Helper()

	data, err := pkcs12.Modern.Encode(key, cert, nil, password)
	if err != nil {
		t.Fatalf("failed to encode PKCS#12: %v", err)
	}
	return data
}

// WriteFile writes data under dir and returns its path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// SignPayload signs payload with RSA-SHA256 PKCS#1 v1.5.
func SignPayload(t testing.TB, key *rsa.PrivateKey, payload []byte) []byte {
	t.Helper()

	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("failed to sign payload: %v", err)
	}
	return sig
}

// SignedDocument returns DocumentTemplate carrying a valid signature by key.
func SignedDocument(t testing.TB, key *rsa.PrivateKey) []byte {
	t.Helper()

	sig := SignPayload(t, key, []byte(Payload))
	return []byte(fmt.Sprintf(DocumentTemplate, base64.StdEncoding.EncodeToString(sig)))
}

// Tamper replaces the first occurrence of old in doc, failing if it does not occur.
func Tamper(t testing.TB, doc []byte, old, replacement string) []byte {
	t.Helper()

	if !bytes.Contains(doc, []byte(old)) {
		t.Fatalf("document does not contain %q", old)
	}
	return []byte(strings.Replace(string(doc), old, replacement, 1))
}

// IsXMLWellFormed reports whether b is well-formed XML.
func IsXMLWellFormed(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return fmt.Errorf("empty document")
	}

	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = true

	// Varra todos os tokens até EOF.
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
