package usecases

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// ErrSignerUnavailable is returned by Sign when the application was built without a signer.
var ErrSignerUnavailable = errors.New("signer is not configured")

// Request names the two files the verification pipeline consumes.
type Request struct {
	DocumentPath    string
	CertificatePath string
}

// ArchiveRequest names an export archive. CertificatePath, when set, is used if the
// archive carries no certificate of its own, ahead of the default certificate.
type ArchiveRequest struct {
	ArchivePath     string
	Password        string
	CertificatePath string
}

// Application holds the dependencies of the verification pipeline.
type Application struct {
	loader    ports.CertificateLoader
	parser    ports.DocumentParser
	verifier  ports.SignatureVerifier
	reporter  ports.Reporter
	extractor ports.Extractor
	signer    ports.Signer
	logger    *zap.Logger

	defaultCertificate string
}

// Option customizes an Application.
type Option func(*Application)

// WithExtractor enables VerifyArchive.
func WithExtractor(extractor ports.Extractor) Option {
	return func(app *Application) { app.extractor = extractor }
}

// WithDefaultCertificate sets the certificate VerifyArchive falls back to when neither the
// archive nor the request provides one. Ignored if the file does not exist.
func WithDefaultCertificate(path string) Option {
	return func(app *Application) { app.defaultCertificate = path }
}

// WithSigner enables Sign.
func WithSigner(signer ports.Signer) Option {
	return func(app *Application) { app.signer = signer }
}

// WithLogger sets the logger used for pipeline events.
func WithLogger(logger *zap.Logger) Option {
	return func(app *Application) {
		if logger != nil {
			app.logger = logger
		}
	}
}

// NewApplication creates a new instance of the Application with the provided dependencies.
func NewApplication(loader ports.CertificateLoader, parser ports.DocumentParser, verifier ports.SignatureVerifier, reporter ports.Reporter, opts ...Option) *Application {
	app := &Application{
		loader:   loader,
		parser:   parser,
		verifier: verifier,
		reporter: reporter,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Check runs the core pipeline on in-memory inputs. It performs no I/O and reports
// nothing; a signature mismatch is a result with Valid set to false, not an error.
func (app *Application) Check(document, certificate []byte) (*domain.SignedDocument, domain.VerificationResult, error) {
	cert, err := app.loader.Parse(certificate)
	if err != nil {
		return nil, domain.VerificationResult{}, err
	}
	doc, err := app.parser.Parse(document)
	if err != nil {
		return nil, domain.VerificationResult{}, err
	}
	return app.check(doc, cert)
}

// VerifyFiles loads both inputs, verifies the document and reports the outcome. Errors
// are reported too before being returned.
func (app *Application) VerifyFiles(req Request) (domain.VerificationResult, error) {
	cert, err := app.loader.Load(req.CertificatePath)
	if err != nil {
		return domain.VerificationResult{}, app.fail(err)
	}
	doc, err := app.parser.ParseFile(req.DocumentPath)
	if err != nil {
		return domain.VerificationResult{}, app.fail(err)
	}

	doc, result, err := app.check(doc, cert)
	if err != nil {
		return result, app.fail(err)
	}

	reported, err := app.reporter.Report(doc, result.Valid)
	if err != nil {
		return result, fmt.Errorf("failed to write report: %w", err)
	}
	reported.Subject = result.Subject
	return reported, nil
}

// VerifyArchive extracts the archive and verifies its document. The extraction
// directory is removed afterwards.
func (app *Application) VerifyArchive(ctx context.Context, req ArchiveRequest) (domain.VerificationResult, error) {
	if app.extractor == nil {
		return domain.VerificationResult{}, app.fail(domain.InputError(domain.ErrExtraction, "archive extraction is not configured", nil))
	}

	extraction, err := app.extractor.Extract(ctx, req.ArchivePath, req.Password)
	if err != nil {
		return domain.VerificationResult{}, app.fail(err)
	}
	defer func() {
		if err := app.extractor.Cleanup(extraction); err != nil {
			app.logger.Warn("failed to remove extraction directory", zap.String("dir", extraction.Dir), zap.Error(err))
		}
	}()

	certPath := app.archiveCertificate(extraction, req)
	if certPath == "" {
		return domain.VerificationResult{}, app.fail(domain.InputError(domain.ErrCertificateNotFound,
			"certificate not found in the archive and none was supplied", nil))
	}

	return app.VerifyFiles(Request{DocumentPath: extraction.DocumentPath, CertificatePath: certPath})
}

// archiveCertificate picks the certificate in order: archive, request, default.
func (app *Application) archiveCertificate(extraction domain.Extraction, req ArchiveRequest) string {
	switch {
	case extraction.CertificatePath != "":
		return extraction.CertificatePath
	case req.CertificatePath != "":
		return req.CertificatePath
	case app.defaultCertificate == "":
		return ""
	}
	if _, err := os.Stat(app.defaultCertificate); err != nil {
		return ""
	}
	app.logger.Info("certificate not found in archive, using default certificate",
		zap.String("certificate", app.defaultCertificate))
	return app.defaultCertificate
}

// Sign signs the provided data using the Signer service.
func (app *Application) Sign(data []byte) ([]byte, error) {
	if app.signer == nil {
		return nil, ErrSignerUnavailable
	}
	return app.signer.Sign(data)
}

func (app *Application) check(doc *domain.SignedDocument, cert *domain.TrustedCertificate) (*domain.SignedDocument, domain.VerificationResult, error) {
	valid, err := app.verifier.Verify(cert.PublicKey, doc.Payload, doc.Signature)
	if err != nil {
		return doc, domain.VerificationResult{}, err
	}

	app.logger.Info("signature checked",
		zap.Bool("valid", valid),
		zap.String("cert_subject", cert.Subject()),
		zap.Int("payload_bytes", len(doc.Payload)),
	)
	return doc, domain.VerificationResult{Valid: valid, Subject: cert.Subject()}, nil
}

func (app *Application) fail(err error) error {
	app.logger.Debug("verification pipeline failed",
		zap.String("code", domain.CodeOf(err).String()),
		zap.Error(err),
	)
	if rerr := app.reporter.ReportError(err); rerr != nil {
		app.logger.Warn("failed to write error report", zap.Error(rerr))
	}
	return err
}
