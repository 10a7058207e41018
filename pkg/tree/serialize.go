package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// Serialize writes an XML rendition of the node to w. Documents
// serialize their children in order; attribute and namespace nodes
// serialize as name="value" pairs.
func Serialize(w io.Writer, n types.Node) error {
	switch n.NodeKind() {
	case types.KindDocument:
		for _, ch := range n.ChildNodes() {
			if err := Serialize(w, ch); err != nil {
				return err
			}
		}
		return nil
	case types.KindElement:
		return serializeElement(w, n)
	case types.KindText:
		_, err := io.WriteString(w, escapeText(n.StringValue()))
		return err
	case types.KindComment:
		_, err := fmt.Fprintf(w, "<!--%s-->", n.StringValue())
		return err
	case types.KindProcessingInstruction:
		_, err := fmt.Fprintf(w, "<?%s %s?>", n.Name().Local, n.StringValue())
		return err
	case types.KindAttribute, types.KindNamespace:
		_, err := fmt.Fprintf(w, "%s=%q", n.Name().StringValue(), n.StringValue())
		return err
	}
	return fmt.Errorf("tree: cannot serialize %s node", n.NodeKind())
}

func serializeElement(w io.Writer, n types.Node) error {
	tag := n.Name().StringValue()
	if _, err := fmt.Fprintf(w, "<%s", tag); err != nil {
		return err
	}
	for _, a := range n.AttributeNodes() {
		if _, err := fmt.Fprintf(w, " %s=%q", a.Name().StringValue(), a.StringValue()); err != nil {
			return err
		}
	}
	kids := n.ChildNodes()
	if len(kids) == 0 {
		_, err := io.WriteString(w, "/>")
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	for _, ch := range kids {
		if err := Serialize(w, ch); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</%s>", tag)
	return err
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string { return textEscaper.Replace(s) }
