package domain

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Is(t *testing.T) {
	err := InputError(ErrCertificateNotFound, "failed to read certificate file x.cer", fs.ErrNotExist)

	assert.ErrorIs(t, err, ErrCertificateNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrStructure)
	assert.Equal(t, "failed to read certificate file x.cer: file does not exist", err.Error())
}

func TestAppError_NoCause(t *testing.T) {
	err := StructureError("signature element <Signature> not found under <Root>")

	assert.ErrorIs(t, err, ErrStructure)
	assert.Equal(t, "signature element <Signature> not found under <Root>", err.Error())
	assert.Equal(t, ErrCodeStructure, err.Code)
}

func TestCodeOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"input", InputError(ErrDocumentNotFound, "missing", nil), ErrCodeInput},
		{"parse", ParseError(ErrXMLParse, "bad xml", nil), ErrCodeParse},
		{"structure", StructureError("no signature"), ErrCodeStructure},
		{"crypto", CryptoError(ErrSignatureFormat, "short", nil), ErrCodeCrypto},
		{"wrapped", errors.Join(errors.New("context"), CryptoError(ErrSignatureDecode, "bad", nil)), ErrCodeCrypto},
		{"plain", errors.New("plain"), ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}
