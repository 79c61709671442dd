package offlinexml

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// hasLocalName compara o nome local do elemento (etree guarda o prefixo em Space).
// Nomes XML diferenciam maiúsculas de minúsculas.
func hasLocalName(el *etree.Element, name string) bool {
	return el.Tag == name
}

// childElementsNamed retorna os filhos diretos de el com o nome local informado.
func childElementsNamed(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if hasLocalName(child, name) {
			out = append(out, child)
		}
	}
	return out
}

// removeWhitespaceNodes remove nós de texto que contêm apenas espaços em branco
func removeWhitespaceNodes(el *etree.Element) {
	var newChildren []etree.Token
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.Element:
			removeWhitespaceNodes(c)
			newChildren = append(newChildren, c)
		case *etree.CharData:
			// Remove apenas se for apenas espaços em branco
			if strings.TrimSpace(c.Data) != "" {
				newChildren = append(newChildren, c)
			}
		default:
			newChildren = append(newChildren, c)
		}
	}
	el.Child = newChildren
}

// stripBase64Whitespace remove quebras de linha e espaços do texto base64.
func stripBase64Whitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// elementString serializa um elemento para fins de depuração.
func elementString(element *etree.Element) string {
	var buf bytes.Buffer
	settings := &etree.WriteSettings{
		CanonicalEndTags: true,
	}
	element.WriteTo(&buf, settings)
	return buf.String()
}
