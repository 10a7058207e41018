package push

import "github.com/perrin-dev/sequoia/pkg/types"

// TeeReceiver duplicates every event to two downstream receivers. The
// first receiver's error wins when both fail.
type TeeReceiver struct {
	A, B Receiver
}

// NewTee returns a receiver forwarding to both a and b.
func NewTee(a, b Receiver) *TeeReceiver { return &TeeReceiver{A: a, B: b} }

func (t *TeeReceiver) both(fa, fb func() error) error {
	errA := fa()
	errB := fb()
	if errA != nil {
		return errA
	}
	return errB
}

func (t *TeeReceiver) Open() error { return t.both(t.A.Open, t.B.Open) }
func (t *TeeReceiver) Close() error { return t.both(t.A.Close, t.B.Close) }

func (t *TeeReceiver) StartDocument() error { return t.both(t.A.StartDocument, t.B.StartDocument) }
func (t *TeeReceiver) EndDocument() error { return t.both(t.A.EndDocument, t.B.EndDocument) }

func (t *TeeReceiver) StartElement(name types.QNameValue, props ElementProperties) error {
	return t.both(
		func() error { return t.A.StartElement(name, props) },
		func() error { return t.B.StartElement(name, props) },
	)
}

func (t *TeeReceiver) Namespace(prefix, uri string) error {
	return t.both(
		func() error { return t.A.Namespace(prefix, uri) },
		func() error { return t.B.Namespace(prefix, uri) },
	)
}

func (t *TeeReceiver) Attribute(name types.QNameValue, value string) error {
	return t.both(
		func() error { return t.A.Attribute(name, value) },
		func() error { return t.B.Attribute(name, value) },
	)
}

func (t *TeeReceiver) StartContent() error { return t.both(t.A.StartContent, t.B.StartContent) }
func (t *TeeReceiver) EndElement() error { return t.both(t.A.EndElement, t.B.EndElement) }

func (t *TeeReceiver) Characters(text string) error {
	return t.both(
		func() error { return t.A.Characters(text) },
		func() error { return t.B.Characters(text) },
	)
}

func (t *TeeReceiver) Comment(text string) error {
	return t.both(
		func() error { return t.A.Comment(text) },
		func() error { return t.B.Comment(text) },
	)
}

func (t *TeeReceiver) ProcessingInstruction(target, data string) error {
	return t.both(
		func() error { return t.A.ProcessingInstruction(target, data) },
		func() error { return t.B.ProcessingInstruction(target, data) },
	)
}

func (t *TeeReceiver) Append(item types.Item) error {
	return t.both(
		func() error { return t.A.Append(item) },
		func() error { return t.B.Append(item) },
	)
}
