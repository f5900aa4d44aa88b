package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/format"
	"github.com/nao1215/markdown"
	"gopkg.in/yaml.v3"
)

// Cell kinds select how a value is rendered. Machine formats print the
// rounded number; human formats add separators and units.
type (
	money     float64
	mass      float64
	frequency float64
	score     float64
	optMoney  *float64
	idList    []string
)

// report is a format-independent rendering of one analysis.
type report struct {
	title    string
	facts    [][2]string
	warning  string
	sections []section
	doc      any
}

type section struct {
	title  string
	header []string
	rows   [][]any
}

func (r *report) fact(name, value string) {
	r.facts = append(r.facts, [2]string{name, value})
}

func (r *report) render(w io.Writer, outputFormat string) error {
	switch outputFormat {
	case constants.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.doc)
	case constants.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r.doc); err != nil {
			return err
		}
		return enc.Close()
	case constants.OutputFormatCSV:
		return r.renderCSV(w)
	case constants.OutputFormatMarkdown:
		return r.renderMarkdown(w)
	case constants.OutputFormatPretty:
		return r.renderPretty(w)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// renderCSV writes the first section only; it is the primary table of every
// report.
func (r *report) renderCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if len(r.sections) == 0 {
		cw.Flush()
		return cw.Error()
	}
	s := r.sections[0]
	if err := cw.Write(s.header); err != nil {
		return err
	}
	for _, row := range s.rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = machineCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *report) renderPretty(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "--- %s ---\n", r.title); err != nil {
		return err
	}
	for _, f := range r.facts {
		if _, err := fmt.Fprintf(w, "%s: %s\n", f[0], f[1]); err != nil {
			return err
		}
	}
	if r.warning != "" {
		if _, err := fmt.Fprintf(w, "WARNING: %s\n", r.warning); err != nil {
			return err
		}
	}
	for _, s := range r.sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", s.title); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		underline := make([]string, len(s.header))
		for i, h := range s.header {
			underline[i] = strings.Repeat("_", len(h))
		}
		fmt.Fprintln(tw, strings.Join(s.header, "\t| "))
		fmt.Fprintln(tw, strings.Join(underline, "\t| "))
		for _, row := range s.rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = humanCell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t| "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (r *report) renderMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)
	md.H1(r.title)
	md.PlainText("")
	if len(r.facts) > 0 {
		rows := make([][]string, len(r.facts))
		for i, f := range r.facts {
			rows[i] = []string{f[0], f[1]}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows:   rows,
		})
		md.PlainText("")
	}
	if r.warning != "" {
		md.Warning(r.warning)
		md.PlainText("")
	}
	for _, s := range r.sections {
		md.H2(s.title)
		md.PlainText("")
		if len(s.rows) == 0 {
			md.PlainText("No rows.")
			md.PlainText("")
			continue
		}
		rows := make([][]string, len(s.rows))
		for i, row := range s.rows {
			rows[i] = make([]string, len(row))
			for j, v := range row {
				rows[i][j] = humanCell(v)
			}
		}
		md.Table(markdown.TableSet{Header: s.header, Rows: rows})
		md.PlainText("")
	}
	return md.Build()
}

func machineCell(v any) string {
	switch x := v.(type) {
	case money:
		return floatCell(float64(x), constants.MoneyDecimals)
	case mass:
		return floatCell(float64(x), constants.MoneyDecimals)
	case score:
		return floatCell(float64(x), constants.MoneyDecimals)
	case frequency:
		return floatCell(float64(x), constants.FrequencyDecimals)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case optMoney:
		if x == nil {
			return ""
		}
		return floatCell(*x, constants.MoneyDecimals)
	case idList:
		return strings.Join(x, ";")
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func humanCell(v any) string {
	switch x := v.(type) {
	case money:
		return format.Currency(float64(x))
	case mass:
		return format.Quantity(float64(x))
	case score:
		return format.Score(float64(x))
	case frequency:
		return format.Frequency(float64(x))
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case optMoney:
		return format.OptionalCurrency(x)
	case idList:
		if len(x) == 0 {
			return "-"
		}
		return strings.Join(x, ", ")
	case int:
		return format.Count(x)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return machineCell(v)
	}
}

func floatCell(v float64, decimals int) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
