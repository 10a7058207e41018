package tree

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// LoadYAML maps a YAML document onto an element tree: mappings become
// elements named by their keys, sequences repeat the enclosing name,
// and scalars become text. The root element takes the given name.
//
// Mapping keys are emitted in the document's own order; only maps
// decoded from non-yaml sources fall back to sorted keys.
func LoadYAML(data []byte, rootName string) (types.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.NewDynamicError(types.ErrSyntax,
			fmt.Sprintf("invalid yaml document: %v", err)).WithCause(err)
	}
	b := NewBuilder()
	if err := b.Open(); err != nil {
		return nil, err
	}
	if err := b.StartDocument(); err != nil {
		return nil, err
	}
	content := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		content = doc.Content[0]
	}
	if err := emitYAML(b, rootName, content); err != nil {
		return nil, err
	}
	if err := b.EndDocument(); err != nil {
		return nil, err
	}
	if err := b.Close(); err != nil {
		return nil, err
	}
	item, err := b.Result()
	if err != nil {
		return nil, err
	}
	return item.(types.Node), nil
}

func emitYAML(b *Builder, name string, n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		// Each member repeats the enclosing element name.
		for _, item := range n.Content {
			if err := emitYAML(b, name, item); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
		if err := b.StartElement(types.QNameValue{Local: name}, 0); err != nil {
			return err
		}
		if err := b.StartContent(); err != nil {
			return err
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if err := emitYAML(b, n.Content[i].Value, n.Content[i+1]); err != nil {
				return err
			}
		}
		return b.EndElement()
	case yaml.ScalarNode:
		if err := b.StartElement(types.QNameValue{Local: name}, 0); err != nil {
			return err
		}
		if err := b.StartContent(); err != nil {
			return err
		}
		if err := b.Characters(n.Value); err != nil {
			return err
		}
		return b.EndElement()
	case yaml.AliasNode:
		return emitYAML(b, name, n.Alias)
	}
	return types.NewDynamicError(types.ErrSyntax,
		fmt.Sprintf("unsupported yaml node kind %d", n.Kind))
}

// FromValue builds an element tree from an already-decoded Go value
// (maps, slices, scalars), used by callers that hold structured data
// rather than yaml text. Map keys are emitted in sorted order for
// stability.
func FromValue(v any, rootName string) (types.Node, error) {
	b := NewBuilder()
	if err := b.StartDocument(); err != nil {
		return nil, err
	}
	if err := emitValue(b, rootName, v); err != nil {
		return nil, err
	}
	if err := b.EndDocument(); err != nil {
		return nil, err
	}
	if err := b.Close(); err != nil {
		return nil, err
	}
	item, err := b.Result()
	if err != nil {
		return nil, err
	}
	return item.(types.Node), nil
}

func emitValue(b *Builder, name string, v any) error {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if err := emitValue(b, name, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		if err := b.StartElement(types.QNameValue{Local: name}, 0); err != nil {
			return err
		}
		if err := b.StartContent(); err != nil {
			return err
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := emitValue(b, k, val[k]); err != nil {
				return err
			}
		}
		return b.EndElement()
	default:
		if err := b.StartElement(types.QNameValue{Local: name}, 0); err != nil {
			return err
		}
		if err := b.StartContent(); err != nil {
			return err
		}
		if v != nil {
			if err := b.Characters(fmt.Sprint(v)); err != nil {
				return err
			}
		}
		return b.EndElement()
	}
}
