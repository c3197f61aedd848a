package outfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"code.cloudfoundry.org/bytefmt"
	"github.com/logrusorgru/aurora"
)

// HeaderPalette colors the status line and header fields.
type HeaderPalette struct {
	Status         aurora.Color
	StatusError    aurora.Color
	Meta           aurora.Color
	FieldName      aurora.Color
	FieldValue     aurora.Color
	FieldSeparator aurora.Color
}

var defaultHeaderPalette = HeaderPalette{
	Status:         aurora.GreenFg | aurora.BoldFm,
	StatusError:    aurora.RedFg | aurora.BoldFm,
	Meta:           aurora.GrayFg,
	FieldName:      aurora.CyanFg,
	FieldSeparator: aurora.GrayFg,
	FieldValue:     0,
}

// ResponsePrinter writes raw HTTP responses for the request command.
type ResponsePrinter struct {
	writer  io.Writer
	aurora  aurora.Aurora
	palette *HeaderPalette
}

// NewResponsePrinter returns a printer writing to w. Colors are emitted
// only when color is true.
func NewResponsePrinter(w io.Writer, color bool) *ResponsePrinter {
	return &ResponsePrinter{
		writer:  w,
		aurora:  aurora.NewAurora(color),
		palette: &defaultHeaderPalette,
	}
}

// PrintStatus writes "HTTP 200 OK  (1.2K, 35ms)".
func (p *ResponsePrinter) PrintStatus(status int, size int, elapsed time.Duration) {
	color := p.palette.Status
	if status >= 400 {
		color = p.palette.StatusError
	}
	line := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	meta := fmt.Sprintf("(%s, %s)", bytefmt.ByteSize(uint64(size)), elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(p.writer, "%s  %s\n",
		p.aurora.Colorize(line, color),
		p.aurora.Colorize(meta, p.palette.Meta))
}

// PrintHeader writes header fields sorted by name, then a blank line.
func (p *ResponsePrinter) PrintHeader(header http.Header) {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range header[name] {
			_, _ = fmt.Fprintf(p.writer, "%s%s %s\n",
				p.aurora.Colorize(name, p.palette.FieldName),
				p.aurora.Colorize(":", p.palette.FieldSeparator),
				p.aurora.Colorize(value, p.palette.FieldValue))
		}
	}
	_, _ = fmt.Fprintln(p.writer)
}

// PrintBody writes body. JSON bodies are indented and filtered by query;
// binary bodies are summarized; other text is written verbatim.
func (p *ResponsePrinter) PrintBody(contentType string, body []byte, query string, compact bool) error {
	if len(body) == 0 {
		return nil
	}

	if isJSON(contentType) || (NormalizeExpression(query) != "" && json.Valid(body)) {
		v, err := QueryJSON(body, query)
		if err != nil {
			return err
		}
		return WriteJSONMaybeCompact(p.writer, v, compact)
	}
	if query != "" {
		return fmt.Errorf("--jq needs a JSON response, got %q", contentType)
	}

	if !utf8.Valid(body) {
		_, _ = fmt.Fprintf(p.writer, "+-----------------------------------------+\n")
		_, _ = fmt.Fprintf(p.writer, "| NOTE: binary data not shown (%s)\n", bytefmt.ByteSize(uint64(len(body))))
		_, _ = fmt.Fprintf(p.writer, "+-----------------------------------------+\n")
		return nil
	}

	if _, err := p.writer.Write(body); err != nil {
		return err
	}
	if body[len(body)-1] != '\n' {
		_, _ = fmt.Fprintln(p.writer)
	}
	return nil
}

func isJSON(contentType string) bool {
	contentType = strings.TrimSpace(contentType)
	if semicolon := strings.Index(contentType, ";"); semicolon != -1 {
		contentType = contentType[:semicolon]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}
