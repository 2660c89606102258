package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// style is an ANSI SGR sequence.
type style string

const (
	styleRed   style = "31"
	styleBlue  style = "34"
	styleCyan  style = "36"
	styleWhite style = "37"
	styleGray  style = "90"
	styleBold  style = "1"
)

var colorEnabled = true

// DisableColors turns off ANSI styling in Format and FprintError.
func DisableColors() {
	colorEnabled = false
}

// EnableColors turns ANSI styling back on.
func EnableColors() {
	colorEnabled = true
}

// paint applies styles to text when colors are enabled.
func paint(text string, styles ...style) string {
	if !colorEnabled || len(styles) == 0 {
		return text
	}
	codes := make([]string, len(styles))
	for i, s := range styles {
		codes[i] = string(s)
	}
	return "\033[" + strings.Join(codes, ";") + "m" + text + "\033[0m"
}

// detailWidth is the column at which Detail is wrapped.
const detailWidth = 70

// Format renders the error as an indented block for terminals:
//
//	ERROR E121: Configuration file not found
//
//	  No configuration file found in /srv/app
//
//	  Hint: Create extstore.yaml or pass --config
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n" + e.heading() + "\n\n")

	if e.Detail != "" {
		writeIndented(&b, "  ", wrapText(e.Detail, detailWidth))
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Cause: ", styleGray), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Hint: ", styleCyan), e.Suggestion)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", paint("Example:", styleCyan))
		writeIndented(&b, "    ", strings.Split(e.Example, "\n"))
		b.WriteString("\n")
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", paint("Learn more: ", styleGray), paint(e.DocURL, styleBlue))
	}

	return b.String()
}

func (e *Error) heading() string {
	if e.Code == "" {
		return paint("ERROR: ", styleRed, styleBold) + paint(e.Message, styleWhite)
	}
	return paint("ERROR ", styleRed, styleBold) +
		paint(e.Code+": ", styleWhite, styleBold) +
		paint(e.Message, styleWhite)
}

func writeIndented(b *strings.Builder, indent string, lines []string) {
	for _, line := range lines {
		b.WriteString(indent + line + "\n")
	}
}

// FormatCompact renders "CODE: Message (Detail)" on one line.
func (e *Error) FormatCompact() string {
	s := e.Message
	if e.Code != "" {
		s = e.Code + ": " + s
	}
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

// FormatJSON renders the error as a JSON object.
func (e *Error) FormatJSON() string {
	out := struct {
		Code       string   `json:"code,omitempty"`
		Category   Category `json:"category"`
		Message    string   `json:"message"`
		Detail     string   `json:"detail,omitempty"`
		Cause      string   `json:"cause,omitempty"`
		Suggestion string   `json:"suggestion,omitempty"`
		DocURL     string   `json:"docUrl,omitempty"`
	}{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking on
// whitespace. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > width {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}

// PrintError writes err to stderr. See FprintError.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError writes err to w, using Format when err carries a structured
// error anywhere in its chain.
func FprintError(w io.Writer, err error) {
	var e *Error
	if stderrors.As(err, &e) {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint("ERROR:", styleRed, styleBold), err.Error())
}
