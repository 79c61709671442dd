package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
)

// Exit codes: a completed run that verified the document, a completed run whose signature
// did not match, and a run that could not complete.
const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

// errSignatureMismatch marks a completed run whose signature did not verify.
var errSignatureMismatch = errors.New("signature does not match")

// O CLI verifica exports XML offline assinados, opcionalmente dentro de um arquivo zip protegido por senha.
func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitValid
	case errors.Is(err, errSignatureMismatch):
		return exitInvalid
	case domain.CodeOf(err) != "":
		// já reportado pelo Reporter
		return exitError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}
