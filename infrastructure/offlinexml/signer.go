package offlinexml

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// Signer mantém a chave privada e o certificado usados para assinar exports offline.
type Signer struct {
	cert    *x509.Certificate
	signing *dsig.SigningContext
	parser  *Parser
	layout  Layout
	logger  *zap.Logger
}

var _ ports.Signer = (*Signer)(nil)

// NewSigner cria um Signer RSA-SHA256 para o par de chaves informado.
func NewSigner(privKey *rsa.PrivateKey, cert *x509.Certificate, layout Layout, logger *zap.Logger) (*Signer, error) {
	if privKey == nil || cert == nil {
		return nil, errors.New("private key and certificate are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	keyStore := dsig.TLSCertKeyStore(tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  privKey,
	})

	return &Signer{
		cert:    cert,
		signing: dsig.NewDefaultSigningContext(keyStore),
		parser:  NewParser(layout, logger),
		layout:  layout,
		logger:  logger,
	}, nil
}

// NewSignerFromP12 carrega certificado e chave de um PKCS#12.
func NewSignerFromP12(p12byte []byte, password string, layout Layout, logger *zap.Logger) (*Signer, error) {
	priv, cert, err := pkcs12.Decode(p12byte, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12: %w", err)
	}
	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("only RSA private keys are supported")
	}
	return NewSigner(rsaKey, cert, layout, logger)
}

// Sign insere o container de assinatura como segundo filho da raiz. O payload assinado é
// exatamente o que o Parser reconstrói ao remover esse container.
func (s *Signer) Sign(xmlData []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlData); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	// Obtém o conteúdo do elemento raiz do XML
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty XML document")
	}

	children := root.ChildElements()
	if len(children) == 0 {
		return nil, domain.StructureError(fmt.Sprintf("root element <%s> has no content to sign", root.Tag))
	}
	if len(childElementsNamed(root, s.layout.containerName())) > 0 {
		return nil, domain.StructureError(fmt.Sprintf("document already contains a <%s> element", s.layout.containerName()))
	}

	// Constrói <Signature><SignatureValue/></Signature> logo após o primeiro filho
	container := etree.NewElement(s.layout.containerName())
	value := container.CreateElement(s.layout.valueName())
	index := children[0].Index() + 1
	root.InsertChildAt(index, container)

	payload, err := s.parser.payload(doc, index)
	if err != nil {
		return nil, err
	}

	// Efetua a assinatura RSA-SHA256 do payload reconstruído
	sigBytes, err := s.signing.SignString(string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	value.SetText(base64.StdEncoding.EncodeToString(sigBytes))

	s.logger.Debug("document signed",
		zap.String("cert_subject", s.cert.Subject.String()),
		zap.Int("payload_bytes", len(payload)),
	)

	return doc.WriteToBytes()
}
