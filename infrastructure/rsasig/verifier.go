// Package rsasig verifies RSASSA-PKCS1-v1_5 signatures over SHA-256 digests.
package rsasig

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// Verifier is a stateless RSA-SHA256 PKCS#1 v1.5 verifier.
type Verifier struct{}

var _ ports.SignatureVerifier = Verifier{}

// NewVerifier returns a Verifier.
func NewVerifier() Verifier {
	return Verifier{}
}

// Verify reports whether signature is a valid signature of SHA-256(payload) under pub.
// A well-formed signature that does not match is (false, nil). Only a missing key or
// signature bytes that cannot be an RSA signature for this key produce an error.
func (Verifier) Verify(pub *rsa.PublicKey, payload, signature []byte) (bool, error) {
	if pub == nil || pub.N == nil {
		return false, domain.CryptoError(domain.ErrSignatureFormat, "public key is nil", nil)
	}
	if len(signature) == 0 {
		return false, domain.CryptoError(domain.ErrSignatureFormat, "signature is empty", nil)
	}
	if len(signature) != pub.Size() {
		return false, domain.CryptoError(domain.ErrSignatureFormat,
			fmt.Sprintf("signature is %d bytes, expected %d for a %d-bit key", len(signature), pub.Size(), pub.N.BitLen()), nil)
	}

	digest := sha256.Sum256(payload)
	err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, rsa.ErrVerification):
		return false, nil
	default:
		return false, domain.CryptoError(domain.ErrSignatureFormat, "signature verification failed", err)
	}
}
