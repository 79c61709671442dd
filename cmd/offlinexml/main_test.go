package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lb-conn/offlinexml-verifier/test"
)

type fixture struct {
	dir      string
	certPath string
	docPath  string
	badPath  string
	p12Path  string
	config   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	cert, key := test.NewCertificate(t)
	dir := t.TempDir()
	signed := test.SignedDocument(t, key)

	return fixture{
		dir:      dir,
		certPath: test.WriteFile(t, dir, "issuer.cer", test.CertificatePEM(cert)),
		docPath:  test.WriteFile(t, dir, "signed.xml", signed),
		badPath:  test.WriteFile(t, dir, "tampered.xml", test.Tamper(t, signed, `dob="01-01-1990"`, `dob="01-01-1991"`)),
		p12Path:  test.WriteFile(t, dir, "signer.p12", test.P12(t, cert, key, "example")),
		config:   test.WriteFile(t, dir, "offlinexml.yaml", []byte("report:\n  node: Data\n")),
	}
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Verify(t *testing.T) {
	f := newFixture(t)

	t.Run("valid", func(t *testing.T) {
		code, stdout, _ := execute(t, "verify", "--config", f.config, "--xml", f.docPath, "--cert", f.certPath)
		assert.Equal(t, exitValid, code)
		assert.Contains(t, stdout, "XML Validated Successfully")
		assert.Contains(t, stdout, "Asha Rao")
	})

	t.Run("mismatch", func(t *testing.T) {
		code, stdout, _ := execute(t, "verify", "--config", f.config, "--xml", f.badPath, "--cert", f.certPath)
		assert.Equal(t, exitInvalid, code)
		assert.Contains(t, stdout, "XML Validation Failed")
	})

	t.Run("missing certificate", func(t *testing.T) {
		code, stdout, stderr := execute(t, "verify", "--xml", f.docPath, "--cert", filepath.Join(f.dir, "absent.cer"))
		assert.Equal(t, exitError, code)
		assert.Contains(t, stdout, "Error verifying XML:")
		assert.Empty(t, stderr)
	})

	t.Run("missing flag", func(t *testing.T) {
		code, _, stderr := execute(t, "verify", "--xml", f.docPath)
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "cert")
	})

	t.Run("json output", func(t *testing.T) {
		code, stdout, _ := execute(t, "verify", "-o", "json", "--xml", f.badPath, "--cert", f.certPath)
		assert.Equal(t, exitInvalid, code)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, false, got["valid"])
	})

	t.Run("invalid strategy flag", func(t *testing.T) {
		code, _, stderr := execute(t, "verify", "--strategy", "xpath", "--xml", f.docPath, "--cert", f.certPath)
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "strategy")
	})
}

func TestRun_Sign(t *testing.T) {
	f := newFixture(t)
	unsigned := test.WriteFile(t, f.dir, "unsigned.xml", []byte(test.UnsignedExport))
	out := filepath.Join(f.dir, "out.xml")

	code, _, stderr := execute(t, "sign", "--xml", unsigned, "--p12", f.p12Path, "--pass", "example", "--out", out)
	require.Equal(t, exitValid, code, stderr)

	signed, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, test.IsXMLWellFormed(signed))

	code, stdout, _ := execute(t, "verify", "--xml", out, "--cert", f.certPath)
	assert.Equal(t, exitValid, code)
	assert.Contains(t, stdout, "Ravi Kumar")

	code, _, stderr = execute(t, "sign", "--xml", unsigned, "--p12", f.p12Path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "missing password")
}

func TestRun_VerifyArchiveMissing(t *testing.T) {
	f := newFixture(t)

	code, stdout, _ := execute(t, "verify-archive", "--archive", filepath.Join(f.dir, "absent.zip"), "--cert", f.certPath)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stdout, "Error verifying XML:")
}
