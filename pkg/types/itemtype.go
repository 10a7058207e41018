package types

import "fmt"

// Cardinality is the count-class of a sequence, encoded as a bit-set of
// the occurrence possibilities (zero, one, many).
type Cardinality uint8

const (
	cardZero Cardinality = 1 << iota
	cardOne
	cardMany
)

const (
	CardEmpty      = cardZero
	CardExactlyOne = cardOne
	CardZeroOrOne  = cardZero | cardOne
	CardOneOrMore  = cardOne | cardMany
	CardZeroOrMore = cardZero | cardOne | cardMany
)

// AllowsZero reports whether the empty sequence is permitted.
func (c Cardinality) AllowsZero() bool { return c&cardZero != 0 }

// AllowsMany reports whether more than one item is permitted.
func (c Cardinality) AllowsMany() bool { return c&cardMany != 0 }

// Union returns the cardinality admitting everything either admits.
func (c Cardinality) Union(o Cardinality) Cardinality { return c | o }

// Intersect returns the cardinality admitting only what both admit.
func (c Cardinality) Intersect(o Cardinality) Cardinality { return c & o }

// Subsumes reports whether every count allowed by o is allowed by c.
// Optimization may only narrow: replace a cardinality with one it subsumes.
func (c Cardinality) Subsumes(o Cardinality) bool { return c|o == c }

func (c Cardinality) String() string {
	switch c {
	case CardEmpty:
		return "empty"
	case CardExactlyOne:
		return "exactly-one"
	case CardZeroOrOne:
		return "zero-or-one"
	case CardOneOrMore:
		return "one-or-more"
	case CardZeroOrMore:
		return "zero-or-more"
	}
	return fmt.Sprintf("cardinality(%b)", uint8(c))
}

// OccurrenceIndicator renders the conventional suffix (?, *, +, "").
func (c Cardinality) OccurrenceIndicator() string {
	switch c {
	case CardZeroOrOne:
		return "?"
	case CardZeroOrMore:
		return "*"
	case CardOneOrMore:
		return "+"
	}
	return ""
}

// itemClass partitions item types into atomic, node, and any.
type itemClass int

const (
	classAny itemClass = iota
	classAtomic
	classNode
)

// ItemType is a static item-type descriptor: any item, an atomic type,
// or a node kind test (optionally name-restricted).
type ItemType struct {
	class itemClass
	// atomic is valid when class == classAtomic.
	atomic AtomicType
	// anyAtomic widens an atomic test to all atomic types.
	anyAtomic bool
	// nodeKind is valid when class == classNode.
	nodeKind NodeKind
	// anyNode widens a node test to all node kinds.
	anyNode bool
	// name restricts a node test to a specific expanded name; nil means
	// any name.
	name *QNameValue
}

// AnyItemType matches every item.
var AnyItemType = ItemType{class: classAny}

// AnyAtomicType matches every atomic value.
var AnyAtomicType = ItemType{class: classAtomic, anyAtomic: true}

// AnyNodeType matches every node.
var AnyNodeType = ItemType{class: classNode, anyNode: true}

// AtomicItemType returns the item type matching exactly one atomic type.
func AtomicItemType(t AtomicType) ItemType {
	return ItemType{class: classAtomic, atomic: t}
}

// NodeKindType returns the item type matching one node kind, any name.
func NodeKindType(k NodeKind) ItemType {
	return ItemType{class: classNode, nodeKind: k}
}

// NamedNodeType returns the item type matching one node kind with a
// specific expanded name.
func NamedNodeType(k NodeKind, name QNameValue) ItemType {
	return ItemType{class: classNode, nodeKind: k, name: &name}
}

// IsAtomicOnly reports whether no node can match this type.
func (t ItemType) IsAtomicOnly() bool { return t.class == classAtomic }

// IsNodeOnly reports whether no atomic value can match this type.
func (t ItemType) IsNodeOnly() bool { return t.class == classNode }

// AtomicTypeOf returns the atomic type and true when the type denotes a
// single named atomic type.
func (t ItemType) AtomicTypeOf() (AtomicType, bool) {
	if t.class == classAtomic && !t.anyAtomic {
		return t.atomic, true
	}
	return 0, false
}

// Matches reports whether the item conforms to the type.
func (t ItemType) Matches(it Item) bool {
	switch t.class {
	case classAny:
		return true
	case classAtomic:
		av, ok := it.(AtomicValue)
		if !ok {
			return false
		}
		if t.anyAtomic {
			return true
		}
		if av.AtomicType() == t.atomic {
			return true
		}
		// Integer is substitutable where double is required.
		return t.atomic == TypeDouble && av.AtomicType() == TypeInteger
	case classNode:
		n, ok := it.(Node)
		if !ok {
			return false
		}
		if !t.anyNode && n.NodeKind() != t.nodeKind {
			return false
		}
		if t.name != nil && !t.name.SameName(n.Name()) {
			return false
		}
		return true
	}
	return false
}

// Subsumes reports whether every item matching o also matches t.
func (t ItemType) Subsumes(o ItemType) bool {
	switch t.class {
	case classAny:
		return true
	case classAtomic:
		if o.class != classAtomic {
			return false
		}
		if t.anyAtomic {
			return true
		}
		if o.anyAtomic {
			return false
		}
		if t.atomic == o.atomic {
			return true
		}
		return t.atomic == TypeDouble && o.atomic == TypeInteger
	case classNode:
		if o.class != classNode {
			return false
		}
		if t.anyNode {
			return true
		}
		if o.anyNode || o.nodeKind != t.nodeKind {
			return false
		}
		if t.name == nil {
			return true
		}
		return o.name != nil && t.name.SameName(*o.name)
	}
	return false
}

// Union returns the most specific type subsuming both t and o.
func (t ItemType) Union(o ItemType) ItemType {
	if t.Subsumes(o) {
		return t
	}
	if o.Subsumes(t) {
		return o
	}
	if t.class == classAtomic && o.class == classAtomic {
		if t.atomic.IsNumeric() && o.atomic.IsNumeric() {
			return AtomicItemType(TypeDouble)
		}
		return AnyAtomicType
	}
	if t.class == classNode && o.class == classNode {
		return AnyNodeType
	}
	return AnyItemType
}

func (t ItemType) String() string {
	switch t.class {
	case classAny:
		return "item()"
	case classAtomic:
		if t.anyAtomic {
			return "anyAtomicType"
		}
		return t.atomic.String()
	case classNode:
		if t.anyNode {
			return "node()"
		}
		if t.name != nil {
			return fmt.Sprintf("%s(%s)", t.nodeKind, t.name.StringValue())
		}
		return t.nodeKind.String() + "()"
	}
	return "item()"
}

// SequenceType pairs an item type with a cardinality: the full static
// type of an expression or the required type of a binding.
type SequenceType struct {
	Item ItemType
	Card Cardinality
}

// AnySequence admits every sequence.
var AnySequence = SequenceType{Item: AnyItemType, Card: CardZeroOrMore}

// SingleItem requires exactly one item of the given type.
func SingleItem(t ItemType) SequenceType {
	return SequenceType{Item: t, Card: CardExactlyOne}
}

// OptionalItem admits zero or one item of the given type.
func OptionalItem(t ItemType) SequenceType {
	return SequenceType{Item: t, Card: CardZeroOrOne}
}

// Subsumes reports whether every sequence matching o matches t.
func (s SequenceType) Subsumes(o SequenceType) bool {
	return s.Card.Subsumes(o.Card) && s.Item.Subsumes(o.Item)
}

func (s SequenceType) String() string {
	if s.Card == CardEmpty {
		return "empty-sequence()"
	}
	return s.Item.String() + s.Card.OccurrenceIndicator()
}
