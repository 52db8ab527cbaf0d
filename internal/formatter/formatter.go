// package formatter renders generated weights for the shuffle plugin and for inspection (plugin, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/spotility/internal/shared"
	"github.com/desertthunder/spotility/internal/weights"
)

// Format names an output encoding for weights.
type Format string

const (
	Plugin Format = "plugin"
	CSV    Format = "csv"
	JSON   Format = "json"
)

// DefaultScale is the weight range the shuffle plugin expects.
const DefaultScale = 10.0

var formats = []Format{Plugin, CSV, JSON}

// ParseFormat validates a format name. The empty string selects [Plugin].
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return Plugin, nil
	}
	if !slices.Contains(formats, f) {
		return "", fmt.Errorf("%w: unknown output format %q (want plugin, csv or json)", shared.ErrInvalidArgument, name)
	}
	return f, nil
}

// Render encodes ws in the given format. Scale only applies to [Plugin]; non-positive values use [DefaultScale].
func Render(ws []weights.Weight, format Format, scale float64) ([]byte, error) {
	switch format {
	case Plugin, "":
		return ExportToPlugin(ws, scale), nil
	case CSV:
		return ExportToCSV(ws)
	case JSON:
		return ExportToJSON(ws)
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToPlugin renders "id:weight" pairs joined by "|", with weights multiplied by scale and two decimals.
//
// There is no trailing newline, the result is pasted verbatim into the plugin.
func ExportToPlugin(ws []weights.Weight, scale float64) []byte {
	if scale <= 0 {
		scale = DefaultScale
	}

	var buf bytes.Buffer
	for i, w := range ws {
		if i > 0 {
			buf.WriteByte('|')
		}
		fmt.Fprintf(&buf, "%s:%.2f", w.TrackID, w.Value*scale)
	}
	return buf.Bytes()
}

// ExportToCSV converts weights to CSV with columns: track_id, weight, rating
func ExportToCSV(ws []weights.Weight) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"track_id", "weight", "rating"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, w := range ws {
		record := []string{
			w.TrackID,
			strconv.FormatFloat(w.Value, 'f', 4, 64),
			strconv.FormatFloat(w.Rating, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders weights as an indented JSON array
func ExportToJSON(ws []weights.Weight) ([]byte, error) {
	if ws == nil {
		ws = []weights.Weight{}
	}

	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode weights: %w", err)
	}
	return append(data, '\n'), nil
}
