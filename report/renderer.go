package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	scan_errors "github.com/thefaftek-git/CA-Scanner-sub006/errors"
	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// Renderer writes a result object in one presentation format.
type Renderer interface {
	Render(w io.Writer, result *model.ComparisonResult) error
}

// ForFormat returns the renderer for a configured format name.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "console":
		return &ConsoleRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "csv":
		return &CSVRenderer{}, nil
	case "html":
		return &HTMLRenderer{}, nil
	}
	return nil, scan_errors.ErrUnsupportedReportFormat
}

// ConsoleRenderer prints an aligned table plus the summary block.
type ConsoleRenderer struct{}

func (r *ConsoleRenderer) Render(w io.Writer, result *model.ComparisonResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POLICY\tOUTCOME\tDIFFERENCES")
	for _, pair := range result.Pairs {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", pair.Pair.DisplayName(), pair.Outcome, len(pair.Diffs))
		for _, diff := range pair.Diffs {
			fmt.Fprintf(tw, "  %s\t%s\t%v -> %v\n", diff.FieldPath, diff.Kind, diff.SourceValue, diff.ReferenceValue)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := result.Summary
	fmt.Fprintf(w, "\nSource policies:    %d\n", s.TotalSource)
	fmt.Fprintf(w, "Reference policies: %d\n", s.TotalReference)
	fmt.Fprintf(w, "Identical:          %d\n", s.Identical)
	fmt.Fprintf(w, "Equivalent:         %d\n", s.SemanticallyEquivalent)
	fmt.Fprintf(w, "Different:          %d\n", s.Different)
	fmt.Fprintf(w, "Source only:        %d\n", s.SourceOnly)
	fmt.Fprintf(w, "Reference only:     %d\n", s.ReferenceOnly)

	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics (%d):\n", len(result.Diagnostics))
		for _, diag := range result.Diagnostics {
			fmt.Fprintf(w, "  [%s] %s: %s\n", diag.Kind, diag.File, diag.Detail)
		}
	}
	return nil
}

// JSONRenderer marshals the result object verbatim.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, result *model.ComparisonResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// CSVRenderer writes one row per pair and, when detailed diffs are
// present, one row per field difference.
type CSVRenderer struct{}

func (r *CSVRenderer) Render(w io.Writer, result *model.ComparisonResult) error {
	cw := csv.NewWriter(w)
	header := []string{"policy", "outcome", "match_key", "confidence", "field_path", "difference_kind", "source_value", "reference_value"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, pair := range result.Pairs {
		row := []string{
			pair.Pair.DisplayName(),
			string(pair.Outcome),
			pair.Pair.MatchKey,
			string(pair.Pair.Confidence),
			"", "", "", "",
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		for _, diff := range pair.Diffs {
			diffRow := []string{
				pair.Pair.DisplayName(),
				string(pair.Outcome),
				pair.Pair.MatchKey,
				string(pair.Pair.Confidence),
				diff.FieldPath,
				string(diff.Kind),
				fmt.Sprintf("%v", diff.SourceValue),
				fmt.Sprintf("%v", diff.ReferenceValue),
			}
			if err := cw.Write(diffRow); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
