package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/usecases"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/config"
	"github.com/lb-conn/offlinexml-verifier/setup"
)

const (
	flagConfig       = "config"
	flagOutput       = "output"
	flagLogLevel     = "log-level"
	flagStrategy     = "strategy"
	flagWhitespace   = "whitespace"
	flagCertPassword = "cert-password"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath   string
	output       string
	logLevel     string
	strategy     string
	whitespace   string
	certPassword string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "offlinexml",
		Short:         "verify signed offline identity XML exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, flagConfig, "", "path to a YAML configuration file")
	flags.StringVarP(&opts.output, flagOutput, "o", "", "output format: text or json")
	flags.StringVar(&opts.logLevel, flagLogLevel, "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.strategy, flagStrategy, "", "signature lookup strategy: name or position")
	flags.StringVar(&opts.whitespace, flagWhitespace, "", "payload whitespace handling: preserve or strip")
	flags.StringVar(&opts.certPassword, flagCertPassword, "", "password for PKCS#12 certificate files")

	cmd.AddCommand(
		newVerifyCommand(opts),
		newVerifyArchiveCommand(opts),
		newSignCommand(opts),
	)
	return cmd
}

// resolveConfig loads the config file and applies the flags that were set explicitly.
func (o *globalOptions) resolveConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.Changed(flagOutput) {
		cfg.Output = o.output
	}
	if flags.Changed(flagLogLevel) {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed(flagStrategy) {
		cfg.Document.Strategy = o.strategy
	}
	if flags.Changed(flagWhitespace) {
		cfg.Document.Whitespace = o.whitespace
	}
	if flags.Changed(flagCertPassword) {
		cfg.Certificate.Password = o.certPassword
	}
	return cfg, cfg.Validate()
}

// verifier builds the application and its logger for a verification subcommand.
func (o *globalOptions) verifier(cmd *cobra.Command) (*usecases.Application, *zap.Logger, error) {
	cfg, err := o.resolveConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := setup.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	app, err := setup.NewSetup(cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}

func newVerifyCommand(opts *globalOptions) *cobra.Command {
	var xmlPath, certPath string

	cmd := &cobra.Command{
		Use:   "verify --xml FILE --cert FILE",
		Short: "verify the embedded signature of an XML export against a certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, logger, err := opts.verifier(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			result, err := app.VerifyFiles(usecases.Request{DocumentPath: xmlPath, CertificatePath: certPath})
			return outcome(result, err)
		},
	}
	cmd.Flags().StringVar(&xmlPath, "xml", "", "path to the signed XML document")
	cmd.Flags().StringVar(&certPath, "cert", "", "path to the issuer certificate (.cer, .pem, .p12)")
	_ = cmd.MarkFlagRequired("xml")
	_ = cmd.MarkFlagRequired("cert")
	return cmd
}

func newVerifyArchiveCommand(opts *globalOptions) *cobra.Command {
	var archivePath, password, certPath string

	cmd := &cobra.Command{
		Use:   "verify-archive --archive FILE [--password P] [--cert FILE]",
		Short: "extract an export archive and verify the XML document inside it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, logger, err := opts.verifier(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			result, err := app.VerifyArchive(cmd.Context(), usecases.ArchiveRequest{
				ArchivePath:     archivePath,
				Password:        password,
				CertificatePath: certPath,
			})
			return outcome(result, err)
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "path to the export zip archive")
	cmd.Flags().StringVar(&password, "password", "", "archive password (first 4 letters of name + year of birth)")
	cmd.Flags().StringVar(&certPath, "cert", "", "certificate to use when the archive carries none")
	_ = cmd.MarkFlagRequired("archive")
	return cmd
}

func newSignCommand(opts *globalOptions) *cobra.Command {
	var xmlPath, p12Path, pass, outPath string

	cmd := &cobra.Command{
		Use:   "sign --xml FILE --p12 FILE --pass P [--out FILE]",
		Short: "embed a signature into an unsigned XML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(pass) == "" {
				return fmt.Errorf("missing password for PKCS#12")
			}
			cfg, err := opts.resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := setup.NewLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			p12, err := os.ReadFile(p12Path)
			if err != nil {
				return fmt.Errorf("failed to read PKCS#12 file: %w", err)
			}
			xmlData, err := os.ReadFile(xmlPath)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}

			app, err := setup.NewSignerSetup(cfg, p12, pass, cmd.OutOrStdout(), logger)
			if err != nil {
				return fmt.Errorf("failed to load PKCS#12: %w", err)
			}
			signed, err := app.Sign(xmlData)
			if err != nil {
				return fmt.Errorf("error signing XML: %w", err)
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(signed)
				return err
			}
			return os.WriteFile(outPath, signed, 0o600)
		},
	}
	cmd.Flags().StringVar(&xmlPath, "xml", "", "path to the unsigned XML document")
	cmd.Flags().StringVar(&p12Path, "p12", "", "path to PKCS#12 file containing certificate and private key")
	cmd.Flags().StringVar(&pass, "pass", "", "password for the PKCS#12 file")
	cmd.Flags().StringVar(&outPath, "out", "", "write the signed document here instead of stdout")
	_ = cmd.MarkFlagRequired("xml")
	_ = cmd.MarkFlagRequired("p12")
	return cmd
}

// outcome maps a completed run to the command error that selects the exit code.
func outcome(result domain.VerificationResult, err error) error {
	if err != nil {
		return err
	}
	if !result.Valid {
		return errSignatureMismatch
	}
	return nil
}
