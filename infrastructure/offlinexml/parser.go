package offlinexml

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// Parser extrai o valor da assinatura e reconstrói o payload assinado de um export offline.
type Parser struct {
	layout Layout
	logger *zap.Logger
}

var _ ports.DocumentParser = (*Parser)(nil)

// NewParser cria um Parser para o layout informado. logger pode ser nil.
func NewParser(layout Layout, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{layout: layout, logger: logger}
}

// ParseFile lê e processa o documento no caminho informado.
func (p *Parser) ParseFile(path string) (*domain.SignedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.InputError(domain.ErrDocumentNotFound,
			fmt.Sprintf("failed to read XML file %s", path), err)
	}
	return p.Parse(data)
}

// Parse processa o documento sem alterar a árvore carregada: o container de assinatura é
// removido de uma cópia, que é então serializada para formar o payload.
func (p *Parser) Parse(data []byte) (*domain.SignedDocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, domain.ParseError(domain.ErrXMLParse, "failed to parse XML", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, domain.ParseError(domain.ErrXMLParse, "empty XML document", nil)
	}

	children := root.ChildElements()
	if len(children) < 2 {
		return nil, domain.StructureError(fmt.Sprintf(
			"root element <%s> has %d child element(s), expected at least 2", root.Tag, len(children)))
	}

	container, err := p.locateContainer(root, children)
	if err != nil {
		return nil, err
	}

	value, err := p.locateValue(container)
	if err != nil {
		return nil, err
	}

	signature, err := decodeSignature(value.Text())
	if err != nil {
		return nil, err
	}

	index := container.Index()
	payload, err := p.payload(doc, index)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("signed payload reconstructed",
		zap.String("container", container.FullTag()),
		zap.Int("container_index", index),
		zap.Int("payload_bytes", len(payload)),
		zap.Int("signature_bytes", len(signature)),
	)

	return &domain.SignedDocument{
		Tree:           doc,
		ContainerIndex: index,
		Payload:        payload,
		Signature:      signature,
	}, nil
}

// locateContainer encontra o container de assinatura entre os filhos diretos da raiz.
func (p *Parser) locateContainer(root *etree.Element, children []*etree.Element) (*etree.Element, error) {
	if p.layout.Strategy == StrategyPosition {
		if p.layout.ContainerIndex >= len(children) {
			return nil, domain.StructureError(fmt.Sprintf(
				"root element <%s> has no child element at position %d", root.Tag, p.layout.ContainerIndex))
		}
		return children[p.layout.ContainerIndex], nil
	}

	matches := childElementsNamed(root, p.layout.Container)
	switch len(matches) {
	case 0:
		return nil, domain.StructureError(fmt.Sprintf(
			"signature element <%s> not found under <%s>", p.layout.Container, root.Tag))
	case 1:
		return matches[0], nil
	default:
		return nil, domain.StructureError(fmt.Sprintf(
			"found %d <%s> elements under <%s>, expected exactly one", len(matches), p.layout.Container, root.Tag))
	}
}

// locateValue encontra o elemento que contém a assinatura em base64.
func (p *Parser) locateValue(container *etree.Element) (*etree.Element, error) {
	children := container.ChildElements()

	if p.layout.Strategy == StrategyPosition {
		switch {
		case p.layout.ValueIndex < len(children):
			return children[p.layout.ValueIndex], nil
		case len(children) == 1:
			return children[0], nil
		default:
			return nil, domain.StructureError(fmt.Sprintf(
				"signature element <%s> has no child element at position %d", container.Tag, p.layout.ValueIndex))
		}
	}

	for _, name := range p.layout.Values {
		if matches := childElementsNamed(container, name); len(matches) > 0 {
			return matches[0], nil
		}
	}
	p.logger.Debug("signature value not found", zap.String("container", elementString(container)))
	return nil, domain.StructureError(fmt.Sprintf(
		"signature value element %v not found under <%s>", p.layout.Values, container.Tag))
}

// payload remove o token no índice informado de uma cópia do documento e serializa o
// restante. Nenhuma outra alteração é feita, salvo no modo WhitespaceStrip.
func (p *Parser) payload(doc *etree.Document, index int) ([]byte, error) {
	working := doc.Copy()
	root := working.Root()
	if root == nil || root.RemoveChildAt(index) == nil {
		return nil, domain.StructureError(fmt.Sprintf("no token at index %d to remove", index))
	}

	if p.layout.Whitespace == WhitespaceStrip {
		removeWhitespaceNodes(&working.Element)
	}

	out, err := working.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return out, nil
}

// decodeSignature decodifica o texto base64 do elemento de valor.
func decodeSignature(text string) ([]byte, error) {
	encoded := stripBase64Whitespace(text)
	if encoded == "" {
		return nil, domain.CryptoError(domain.ErrSignatureDecode, "signature value is empty", nil)
	}
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.CryptoError(domain.ErrSignatureDecode, "signature value is not valid base64", err)
	}
	return sig, nil
}
