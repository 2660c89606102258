package view

import (
	"io"
	"strings"
)

// ComponentAttr is the attribute that marks a component boundary in HTML.
const ComponentAttr = "data-component"

// EventAttrPrefix prefixes the attribute that carries a handler id,
// e.g. data-on-click="c3.0".
const EventAttrPrefix = "data-on-"

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// HTML renders n to a string.
func HTML(n *Node) string {
	var b strings.Builder
	_ = WriteHTML(&b, n)
	return b.String()
}

// WriteHTML renders n to w.
func WriteHTML(w io.Writer, n *Node) error {
	sw, ok := w.(io.StringWriter)
	if !ok {
		sw = &stringWriter{w}
	}
	return writeNode(sw, n)
}

type stringWriter struct{ io.Writer }

func (s *stringWriter) WriteString(v string) (int, error) {
	return s.Write([]byte(v))
}

func writeNode(w io.StringWriter, n *Node) error {
	if n == nil {
		return nil
	}

	switch n.Kind {
	case KindText:
		_, err := w.WriteString(escapeHTML(n.Text))
		return err

	case KindFragment:
		return writeChildren(w, n.Children)

	case KindComponent:
		if _, err := w.WriteString(`<div ` + ComponentAttr + `="` + escapeAttr(n.ID) + `" style="display:contents">`); err != nil {
			return err
		}
		if err := writeNode(w, n.Rendered); err != nil {
			return err
		}
		_, err := w.WriteString("</div>")
		return err

	case KindElement:
		if _, err := w.WriteString("<" + n.Tag); err != nil {
			return err
		}
		for _, a := range n.Attrs {
			if _, err := w.WriteString(" " + a.Key + `="` + escapeAttr(a.Value) + `"`); err != nil {
				return err
			}
		}
		for _, e := range n.Events {
			if e.HandlerID == "" {
				continue
			}
			if _, err := w.WriteString(" " + EventAttrPrefix + e.Name + `="` + escapeAttr(e.HandlerID) + `"`); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(">"); err != nil {
			return err
		}
		if voidElements[n.Tag] {
			return nil
		}
		if err := writeChildren(w, n.Children); err != nil {
			return err
		}
		_, err := w.WriteString("</" + n.Tag + ">")
		return err
	}

	return nil
}

func writeChildren(w io.StringWriter, children []*Node) error {
	for _, child := range children {
		if err := writeNode(w, child); err != nil {
			return err
		}
	}
	return nil
}

var (
	htmlReplacer = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
	)
	attrReplacer = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;",
	)
)

func escapeHTML(s string) string { return htmlReplacer.Replace(s) }

func escapeAttr(s string) string { return attrReplacer.Replace(s) }
