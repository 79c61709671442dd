package setup

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lb-conn/offlinexml-verifier/application/usecases"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/archive"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/certificate"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/config"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/offlinexml"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/report"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/rsasig"
)

// NewSetup cria a aplicação de verificação a partir da configuração. O relatório é
// escrito em out; logger pode ser nil.
func NewSetup(cfg config.Config, out io.Writer, logger *zap.Logger) (*usecases.Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := usecases.NewApplication(
		certificate.NewLoader(cfg.Certificate.Password, logger.Named("certificate")),
		offlinexml.NewParser(cfg.Layout(), logger.Named("parser")),
		rsasig.NewVerifier(),
		report.NewReporter(out, cfg.ReportOptions(), logger.Named("report")),
		usecases.WithExtractor(archive.NewExtractor(cfg.ArchiveOptions(), logger.Named("archive"))),
		usecases.WithDefaultCertificate(cfg.Archive.DefaultCertificate),
		usecases.WithLogger(logger),
	)
	return app, nil
}

// NewSignerSetup cria a aplicação com o Signer carregado do PKCS#12.
func NewSignerSetup(cfg config.Config, p12byte []byte, password string, out io.Writer, logger *zap.Logger) (*usecases.Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	signer, err := offlinexml.NewSignerFromP12(p12byte, password, cfg.Layout(), logger.Named("signer"))
	if err != nil {
		return nil, err
	}

	app := usecases.NewApplication(
		certificate.NewLoader(cfg.Certificate.Password, logger.Named("certificate")),
		offlinexml.NewParser(cfg.Layout(), logger.Named("parser")),
		rsasig.NewVerifier(),
		report.NewReporter(out, cfg.ReportOptions(), logger.Named("report")),
		usecases.WithSigner(signer),
		usecases.WithLogger(logger),
	)
	return app, nil
}

// NewLogger constrói o logger de console no nível configurado, escrevendo em stderr.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}
