package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	colorHeader lipgloss.Color = "#89b4fa"
	colorBorder lipgloss.Color = "#6c7086"
	colorTotal  lipgloss.Color = "#f9e2af"
	colorAlert  lipgloss.Color = "#f38ba8"

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	totalStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorTotal)
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAlert)
)

// printer renders command output as JSON, a styled table on a terminal, or a
// plain ASCII table when piped.
type printer struct {
	w     io.Writer
	json  bool
	color bool
}

func newPrinter(cmd *cobra.Command, asJSON bool) *printer {
	w := cmd.OutOrStdout()
	return &printer{w: w, json: asJSON, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// JSON writes v indented.
func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Printf writes unstyled text.
func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Title writes a section heading.
func (p *printer) Title(s string) {
	if p.color {
		s = titleStyle.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

// Total writes a labelled amount line.
func (p *printer) Total(label string, amount decimal.Decimal) {
	line := fmt.Sprintf("%s: %s", label, money(amount))
	if p.color {
		line = totalStyle.Render(line)
	}
	fmt.Fprintln(p.w, line)
}

// Alert writes a highlighted warning line.
func (p *printer) Alert(s string) {
	if p.color {
		s = alertStyle.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

// Table writes rows under headers.
func (p *printer) Table(headers []string, rows [][]string) {
	t := table.New().Headers(headers...).Rows(rows...)
	if p.color {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
	} else {
		t = t.Border(lipgloss.ASCIIBorder()).
			StyleFunc(func(int, int) lipgloss.Style { return cellStyle })
	}
	fmt.Fprintln(p.w, t.Render())
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
