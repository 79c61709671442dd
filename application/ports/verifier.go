package ports

import (
	"context"
	"crypto/rsa"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
)

// CertificateLoader loads the issuer certificate used to verify documents.
type CertificateLoader interface {
	Load(path string) (*domain.TrustedCertificate, error)
	Parse(data []byte) (*domain.TrustedCertificate, error)
}

// DocumentParser extracts the signature value and the signed payload from a document.
type DocumentParser interface {
	ParseFile(path string) (*domain.SignedDocument, error)
	Parse(data []byte) (*domain.SignedDocument, error)
}

// SignatureVerifier checks an RSA PKCS#1 v1.5 SHA-256 signature. A mismatch is reported
// as false with a nil error.
type SignatureVerifier interface {
	Verify(pub *rsa.PublicKey, payload, signature []byte) (bool, error)
}

// Reporter renders the outcome of a run.
type Reporter interface {
	Report(doc *domain.SignedDocument, valid bool) (domain.VerificationResult, error)
	ReportError(err error) error
}

// Signer embeds a signature container into an unsigned document.
type Signer interface {
	Sign(xmlData []byte) ([]byte, error)
}

// Extractor unpacks a password-protected export archive.
type Extractor interface {
	Extract(ctx context.Context, archivePath, password string) (domain.Extraction, error)
	Cleanup(extraction domain.Extraction) error
}
