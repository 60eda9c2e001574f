// Package export renders sweep results for external plotting tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Point is one (initial fraction, final fraction) pair.
type Point struct {
	Initial float64 `json:"initial"`
	Final   float64 `json:"final"`
}

// Document is the JSON representation of a sweep.
type Document struct {
	XLabel       string               `json:"x_label"`
	YLabel       string               `json:"y_label"`
	Nodes        int                  `json:"nodes"`
	Seed         int64                `json:"seed"`
	TimeWeighted bool                 `json:"time_weighted"`
	Requested    int                  `json:"requested"`
	Succeeded    int                  `json:"succeeded"`
	Skipped      int                  `json:"skipped"`
	Points       []Point              `json:"points"`
	Summary      *models.SweepSummary `json:"summary,omitempty"`
}

// ParseFormat normalizes a format name. An empty name selects CSV.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Write renders result in format. summary is only used by JSON.
func Write(w io.Writer, format string, result *models.SweepResult, summary *models.SweepSummary) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatJSON:
		return WriteJSON(w, result, summary)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteCSV writes one row per successful trial under a header row holding the
// axis labels.
func WriteCSV(w io.Writer, result *models.SweepResult) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{models.AxisInitialFraction, models.AxisFinalFraction}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range result.Trials {
		row := []string{formatFloat(t.InitialFraction), formatFloat(t.FinalFraction)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write trial %d: %w", t.Trial, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes result as an indented Document.
func WriteJSON(w io.Writer, result *models.SweepResult, summary *models.SweepSummary) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewDocument(result, summary))
}

// NewDocument converts result into its JSON representation.
func NewDocument(result *models.SweepResult, summary *models.SweepSummary) *Document {
	doc := &Document{
		XLabel:       models.AxisInitialFraction,
		YLabel:       models.AxisFinalFraction,
		Nodes:        result.Nodes,
		Seed:         result.Seed,
		TimeWeighted: result.TimeWeighted,
		Requested:    result.Requested,
		Succeeded:    result.Succeeded,
		Skipped:      result.Skipped,
		Points:       make([]Point, len(result.Trials)),
		Summary:      summary,
	}
	for i, t := range result.Trials {
		doc.Points[i] = Point{Initial: t.InitialFraction, Final: t.FinalFraction}
	}
	return doc
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
