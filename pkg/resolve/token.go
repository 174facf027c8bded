// Package resolve turns user-supplied identifiers into task ids. A token is
// a view position (12 or #12), a stable id (with or without .md) or a
// filename.
package resolve

import (
	"strconv"
	"strings"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// Kind tags the form a token was written in.
type Kind int

const (
	KindFilename Kind = iota
	KindIndex
	KindStableID
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindStableID:
		return "id"
	default:
		return "filename"
	}
}

// Token is a parsed identifier. Index is set for KindIndex; Value holds the
// id for KindStableID and the raw name for KindFilename.
type Token struct {
	Raw   string
	Kind  Kind
	Index int
	Value string
}

// Parse classifies a token. Parsing never fails; a token that is neither a
// position nor an id is treated as a filename.
func Parse(raw string) Token {
	s := strings.TrimSpace(raw)
	tok := Token{Raw: raw, Kind: KindFilename, Value: s}

	digits := strings.TrimPrefix(s, "#")
	if digits != "" && isDigits(digits) {
		if n, err := strconv.Atoi(digits); err == nil {
			tok.Kind = KindIndex
			tok.Index = n
			return tok
		}
	}
	if id := strings.TrimSuffix(s, ".md"); store.IsID(id) {
		tok.Kind = KindStableID
		tok.Value = id
	}
	return tok
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
