// Package report renders verification outcomes for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	msgValid   = "XML Validated Successfully"
	msgInvalid = "XML Validation Failed"
)

// FieldSpec maps an attribute of the identity node to a display label.
type FieldSpec struct {
	Label     string
	Attribute string
}

// Options configures which node is projected after a successful verification.
type Options struct {
	Node   string
	Fields []FieldSpec
	Format Format
}

// DefaultOptions projects the proof-of-identity node of the offline export.
func DefaultOptions() Options {
	return Options{
		Node: "Poi",
		Fields: []FieldSpec{
			{Label: "Name", Attribute: "name"},
			{Label: "DOB", Attribute: "dob"},
			{Label: "Gender", Attribute: "gender"},
		},
		Format: FormatText,
	}
}

// Reporter writes outcomes to out.
type Reporter struct {
	out    io.Writer
	opts   Options
	logger *zap.Logger
}

var _ ports.Reporter = (*Reporter)(nil)

// NewReporter creates a Reporter. logger may be nil.
func NewReporter(out io.Writer, opts Options, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{out: out, opts: opts, logger: logger}
}

type jsonReport struct {
	Valid  bool           `json:"valid"`
	Fields []domain.Field `json:"fields,omitempty"`
	Error  *jsonError     `json:"error,omitempty"`
}

type jsonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report prints the outcome. When valid, the identity node is read from the document as
// loaded and its configured attributes are included; absent attributes are shown empty.
func (r *Reporter) Report(doc *domain.SignedDocument, valid bool) (domain.VerificationResult, error) {
	result := domain.VerificationResult{Valid: valid}
	if valid && doc != nil {
		result.Fields = r.project(doc.Tree)
	}

	if r.opts.Format == FormatJSON {
		return result, r.writeJSON(jsonReport{Valid: result.Valid, Fields: result.Fields})
	}

	if !valid {
		_, err := fmt.Fprintln(r.out, msgInvalid)
		return result, err
	}
	if _, err := fmt.Fprintln(r.out, msgValid); err != nil {
		return result, err
	}
	if len(result.Fields) == 0 {
		return result, nil
	}

	if _, err := fmt.Fprintln(r.out, "\nBasic Information:"); err != nil {
		return result, err
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	for _, f := range result.Fields {
		t.AppendRow(table.Row{f.Label, f.Value})
	}
	t.Render()
	return result, nil
}

// ReportError prints a single message for a failed run.
func (r *Reporter) ReportError(err error) error {
	if r.opts.Format == FormatJSON {
		return r.writeJSON(jsonReport{Error: &jsonError{
			Code:    domain.CodeOf(err).String(),
			Message: err.Error(),
		}})
	}
	_, werr := fmt.Fprintf(r.out, "Error verifying XML: %v\n", err)
	return werr
}

// project reads the configured attributes of the first element matching Node.
func (r *Reporter) project(tree *etree.Document) []domain.Field {
	if tree == nil || r.opts.Node == "" {
		return nil
	}

	path, err := etree.CompilePath("//" + r.opts.Node)
	if err != nil {
		r.logger.Warn("invalid identity node path", zap.String("node", r.opts.Node), zap.Error(err))
		return nil
	}
	node := tree.FindElementPath(path)
	if node == nil {
		r.logger.Info("identity node not found", zap.String("node", r.opts.Node))
		return nil
	}

	fields := make([]domain.Field, 0, len(r.opts.Fields))
	for _, want := range r.opts.Fields {
		f := domain.Field{Label: want.Label, Attribute: want.Attribute}
		if attr := node.SelectAttr(want.Attribute); attr != nil {
			f.Value = attr.Value
			f.Present = true
		}
		fields = append(fields, f)
	}
	return fields
}

func (r *Reporter) writeJSON(v jsonReport) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
