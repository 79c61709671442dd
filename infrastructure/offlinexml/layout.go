package offlinexml

import (
	"fmt"
	"slices"
)

// Strategy define como o container de assinatura é localizado dentro da raiz.
type Strategy string

const (
	// StrategyName localiza o container e o valor pelo nome local do elemento.
	StrategyName Strategy = "name"
	// StrategyPosition localiza o container e o valor pela posição entre os filhos.
	StrategyPosition Strategy = "position"
)

// Whitespace define o tratamento de nós de texto compostos só por espaços no payload.
type Whitespace string

const (
	WhitespacePreserve Whitespace = "preserve"
	WhitespaceStrip    Whitespace = "strip"
)

// Layout descreve a estrutura fixa do documento exportado.
type Layout struct {
	Strategy       Strategy
	Container      string
	Values         []string
	ContainerIndex int
	ValueIndex     int
	Whitespace     Whitespace
}

// DefaultLayout retorna o layout do export offline: <Signature> como filho direto da
// raiz, com o valor em <SignatureValue> (ou <Value>).
func DefaultLayout() Layout {
	return Layout{
		Strategy:       StrategyName,
		Container:      "Signature",
		Values:         []string{"SignatureValue", "Value"},
		ContainerIndex: 1,
		ValueIndex:     1,
		Whitespace:     WhitespacePreserve,
	}
}

// Validate verifica se o layout é utilizável.
func (l Layout) Validate() error {
	switch l.Strategy {
	case StrategyName:
		if l.Container == "" {
			return fmt.Errorf("container name is required for strategy %q", l.Strategy)
		}
		if len(l.Values) == 0 || slices.Contains(l.Values, "") {
			return fmt.Errorf("value element names must be non-empty for strategy %q", l.Strategy)
		}
	case StrategyPosition:
		if l.ContainerIndex < 0 || l.ValueIndex < 0 {
			return fmt.Errorf("positional indexes must not be negative")
		}
	default:
		return fmt.Errorf("unknown strategy %q", l.Strategy)
	}

	switch l.Whitespace {
	case WhitespacePreserve, WhitespaceStrip:
	default:
		return fmt.Errorf("unknown whitespace mode %q", l.Whitespace)
	}
	return nil
}

// valueName é o nome do elemento criado pelo Signer para guardar a assinatura.
func (l Layout) valueName() string {
	if len(l.Values) > 0 && l.Values[0] != "" {
		return l.Values[0]
	}
	return "SignatureValue"
}

// containerName é o nome do container criado pelo Signer.
func (l Layout) containerName() string {
	if l.Container != "" {
		return l.Container
	}
	return "Signature"
}
