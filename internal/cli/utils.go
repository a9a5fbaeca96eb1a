// Package cli provides output helpers for the mulefind command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/mulefind/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one tab-separated line per hit.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format. Unknown values fall back to text.
func ParseOutputFormat(s string) SearchOutputFormat {
	switch SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputJSON:
		return OutputJSON
	case OutputCompact:
		return OutputCompact
	}
	return OutputText
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	emptyStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240"))
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		return WriteHits(w, response.Results, OutputCompact)
	default:
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d results for %q in %dms", response.Total, response.Query, response.QueryTime)))
		if len(response.Providers) > 0 {
			fmt.Fprintln(w, metaStyle.Render("providers: "+formatProviders(response.Providers)))
		}
		fmt.Fprintln(w)
		return WriteHits(w, response.Results, OutputText)
	}
}

// WriteHits writes a plain list of hits, e.g. known-store listings.
func WriteHits(w io.Writer, hits []*models.Hit, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if hits == nil {
			hits = []*models.Hit{}
		}
		return enc.Encode(hits)
	case OutputCompact:
		for _, h := range hits {
			if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", h.Hash, h.Size, h.Sources, h.Network, h.Name); err != nil {
				return err
			}
		}
		return nil
	default:
		if len(hits) == 0 {
			fmt.Fprintln(w, emptyStyle.Render("No results."))
			return nil
		}
		for i, h := range hits {
			writeOneHit(w, i+1, h)
		}
		return nil
	}
}

func writeOneHit(w io.Writer, rank int, h *models.Hit) {
	fmt.Fprintf(w, "%3d. %s\n", rank, nameStyle.Render(h.Name))
	meta := []string{FormatSize(h.Size), fmt.Sprintf("%d sources", h.Sources)}
	if h.Network != "" {
		meta = append(meta, h.Network)
	}
	meta = append(meta, h.Hash)
	fmt.Fprintf(w, "     %s\n", metaStyle.Render(strings.Join(meta, " | ")))
}

func formatProviders(providers map[string]int) string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, providers[name])
	}
	return strings.Join(parts, ", ")
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// FormatSize renders a byte count with a binary unit, e.g. "1.5 MiB".
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
