package certificate

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// DefaultPassword é a senha com que o emissor distribui o contêiner PKCS#12 público.
const DefaultPassword = "public"

// Loader carrega o certificado do emissor a partir de PEM, DER, base64 ou PKCS#12.
type Loader struct {
	password string
	logger   *zap.Logger
}

var _ ports.CertificateLoader = (*Loader)(nil)

// NewLoader cria um Loader. password é usado apenas para arquivos PKCS#12.
func NewLoader(password string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{password: password, logger: logger}
}

// Load lê e interpreta o arquivo de certificado.
func (l *Loader) Load(path string) (*domain.TrustedCertificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.InputError(domain.ErrCertificateNotFound,
			fmt.Sprintf("failed to read certificate file %s", path), err)
	}

	trusted, err := l.Parse(data)
	if err != nil {
		return nil, err
	}

	l.logger.Info("certificate loaded",
		zap.String("path", path),
		zap.String("subject", trusted.Subject()),
		zap.String("serial", trusted.Certificate.SerialNumber.String()),
		zap.Time("not_after", trusted.Certificate.NotAfter),
	)
	return trusted, nil
}

// Parse interpreta os bytes do certificado. Validade e cadeia não são verificadas;
// apenas a chave pública RSA é usada.
func (l *Loader) Parse(data []byte) (*domain.TrustedCertificate, error) {
	cert, err := l.parseCertificate(data)
	if err != nil {
		return nil, domain.ParseError(domain.ErrCertificateParse, "failed to parse certificate", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, domain.ParseError(domain.ErrCertificateParse,
			fmt.Sprintf("unsupported public key algorithm %s", cert.PublicKeyAlgorithm), nil)
	}

	return &domain.TrustedCertificate{Certificate: cert, PublicKey: pub}, nil
}

func (l *Loader) parseCertificate(data []byte) (*x509.Certificate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("certificate file is empty")
	}

	if bytes.Contains(trimmed, []byte("-----BEGIN")) {
		return parsePEM(trimmed)
	}

	if cert, err := x509.ParseCertificate(trimmed); err == nil {
		return cert, nil
	}

	// Alguns .cer trazem apenas o DER em base64, sem o cabeçalho PEM
	if der, err := base64.StdEncoding.DecodeString(stripWhitespace(trimmed)); err == nil {
		if cert, err := x509.ParseCertificate(der); err == nil {
			return cert, nil
		}
	}

	return l.parsePKCS12(data)
}

// parsePEM retorna o primeiro bloco CERTIFICATE; outros tipos de bloco são ignorados.
func parsePEM(data []byte) (*x509.Certificate, error) {
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue // Pula blocos que não são certificados
		}
		return x509.ParseCertificate(block.Bytes)
	}
	return nil, errors.New("no CERTIFICATE block found in PEM data")
}

// parsePKCS12 aceita contêineres com chave privada e trust stores sem chave.
func (l *Loader) parsePKCS12(data []byte) (*x509.Certificate, error) {
	_, cert, err := pkcs12.Decode(data, l.password)
	if err == nil {
		return cert, nil
	}

	certs, storeErr := pkcs12.DecodeTrustStore(data, l.password)
	if storeErr != nil {
		return nil, fmt.Errorf("data is not PEM, DER or PKCS#12: %w", err)
	}
	if len(certs) == 0 {
		return nil, errors.New("PKCS#12 trust store holds no certificates")
	}
	return certs[0], nil
}

func stripWhitespace(data []byte) string {
	return string(bytes.Join(bytes.Fields(data), nil))
}
