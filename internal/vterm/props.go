package vterm

// Prop identifies a terminal property reported through SetProperty.
type Prop int

const (
	PropCursorVisible Prop = iota + 1
	PropCursorBlink
	PropReverse
	PropCursorShape
	PropAltScreen
	PropTitle
)

func (p Prop) String() string {
	switch p {
	case PropCursorVisible:
		return "cursor-visible"
	case PropCursorBlink:
		return "cursor-blink"
	case PropReverse:
		return "reverse"
	case PropCursorShape:
		return "cursor-shape"
	case PropAltScreen:
		return "alt-screen"
	case PropTitle:
		return "title"
	default:
		return "unknown"
	}
}

// Value carries a property value. Only the field matching the property's
// kind is meaningful.
type Value struct {
	Bool   bool
	Int    int
	String string
}

// CursorShape is the DECSCUSR cursor form.
type CursorShape int

const (
	CursorBlock CursorShape = iota + 1
	CursorUnderline
	CursorBar
)
