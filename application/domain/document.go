package domain

import (
	"crypto/rsa"
	"crypto/x509"

	"github.com/beevik/etree"
)

// SignedDocument is a parsed offline XML export. Tree is the document as loaded and is
// never mutated; Payload was derived from a copy with the signature container removed.
type SignedDocument struct {
	Tree           *etree.Document
	ContainerIndex int
	Payload        []byte
	Signature      []byte
}

// TrustedCertificate is the issuer certificate and its RSA public key. Only the key takes
// part in verification.
type TrustedCertificate struct {
	Certificate *x509.Certificate
	PublicKey   *rsa.PublicKey
}

// Subject returns the certificate subject, or "" when only a bare key is known.
func (c *TrustedCertificate) Subject() string {
	if c == nil || c.Certificate == nil {
		return ""
	}
	return c.Certificate.Subject.String()
}

// Field is one attribute read from the identity node of a verified document.
type Field struct {
	Label     string `json:"label"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Present   bool   `json:"present"`
}

// VerificationResult is the outcome of one verification run. Fields is only populated
// when Valid is true.
type VerificationResult struct {
	Valid   bool
	Subject string
	Fields  []Field
}

// Extraction holds the files found in an extracted archive.
type Extraction struct {
	Dir             string
	DocumentPath    string
	CertificatePath string
}
