package diag

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

type Item struct {
	Filename string
	Line     int
	Col      int
	Msg      string
	Internal bool
}

type Bag struct {
	Items []Item
}

func (b *Bag) Add(filename string, line int, col int, msg string) {
	b.Items = append(b.Items, Item{Filename: filename, Line: line, Col: col, Msg: msg})
}

func (b *Bag) AddAt(loc Loc, msg string) {
	b.Add(loc.Filename, loc.Line, loc.Col, msg)
}

// AddErr records err, keeping the location of an InternalError.
func (b *Bag) AddErr(loc Loc, err error) {
	var ice *InternalError
	if errors.As(err, &ice) {
		l := ice.Loc
		b.Items = append(b.Items, Item{Filename: l.Filename, Line: l.Line, Col: l.Col, Msg: ice.Msg, Internal: true})
		return
	}
	b.AddAt(loc, err.Error())
}

type Loc struct {
	Filename string
	Line     int
	Col      int
}

func (l Loc) String() string { return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Col) }

// InternalError is a broken compiler invariant: the input program is not at
// fault and compilation cannot continue.
type InternalError struct {
	Loc Loc
	Msg string
	Err error
}

// Internalf returns an InternalError at loc. A trailing %w verb wraps the
// corresponding argument.
func Internalf(loc Loc, format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	return &InternalError{Loc: loc, Msg: err.Error(), Err: errors.Unwrap(err)}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: internal compiler error: %s", e.Loc, e.Msg)
}

func (e *InternalError) Unwrap() error { return e.Err }

// IsInternal reports whether err is, or wraps, an InternalError.
func IsInternal(err error) bool {
	var ice *InternalError
	return errors.As(err, &ice)
}

func Print(w io.Writer, b *Bag) {
	if b == nil || len(b.Items) == 0 {
		return
	}
	items := make([]Item, 0, len(b.Items))
	items = append(items, b.Items...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Filename != items[j].Filename {
			return items[i].Filename < items[j].Filename
		}
		if items[i].Line != items[j].Line {
			return items[i].Line < items[j].Line
		}
		return items[i].Col < items[j].Col
	})
	for _, it := range items {
		kind := "error"
		if it.Internal {
			kind = "internal compiler error"
		}
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", it.Filename, it.Line, it.Col, kind, it.Msg)
	}
}
