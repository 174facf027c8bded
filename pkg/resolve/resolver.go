package resolve

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

const (
	ReasonNoView       = "no current view"
	ReasonOutOfRange   = "index out of range"
	ReasonUnresolvable = "unresolvable"
)

// ResolutionError reports a token that could not be turned into an id.
type ResolutionError struct {
	Token    string
	Reason   string
	Searched []string
}

func (e ResolutionError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("cannot resolve %q: %s", e.Token, e.Reason)
	}
	return fmt.Sprintf("cannot resolve %q: %s (searched %s)", e.Token, e.Reason, strings.Join(e.Searched, ", "))
}

func (e ResolutionError) Kind() store.ErrorKind { return store.KindResolution }

// Lookup is the part of the repository the resolver reads.
type Lookup interface {
	Read(id string) (*store.Task, error)
	FindByFilename(name string) (*store.Task, error)
}

// Resolver resolves tokens against a repository and the current view.
// Snapshot may be nil when no view has been built.
type Resolver struct {
	Store    Lookup
	Snapshot *view.Snapshot
}

// New returns a resolver over src using the snapshot of the current view.
func New(src Lookup, snap *view.Snapshot) *Resolver {
	return &Resolver{Store: src, Snapshot: snap}
}

// Resolve returns the id the token refers to. Positions are looked up in
// the snapshot only; ids and filenames go to the repository and work
// without a view.
func (r *Resolver) Resolve(raw string) (string, error) {
	tok := Parse(raw)
	if tok.Value == "" {
		return "", ResolutionError{Token: raw, Reason: ReasonUnresolvable}
	}

	if tok.Kind == KindIndex {
		if r.Snapshot == nil {
			return "", ResolutionError{Token: raw, Reason: ReasonNoView}
		}
		e, ok := r.Snapshot.Lookup(tok.Index)
		if !ok {
			return "", ResolutionError{Token: raw, Reason: ReasonOutOfRange}
		}
		return e.ID, nil
	}

	var searched []string
	if tok.Kind == KindStableID {
		t, err := r.Store.Read(tok.Value)
		switch {
		case err == nil:
			return t.ID, nil
		case store.KindOf(err) != store.KindNotFound:
			return "", err
		}
		searched = appendSearched(searched, err)
	}

	for _, name := range filenameCandidates(tok.Value) {
		t, err := r.Store.FindByFilename(name)
		switch {
		case err == nil:
			return t.ID, nil
		case store.KindOf(err) != store.KindNotFound:
			return "", err
		}
		searched = appendSearched(searched, err)
	}

	// A slugged name whose slug no longer matches still carries the id.
	if id := store.IDFromFilename(tok.Value); id != "" && tok.Kind == KindFilename {
		t, err := r.Store.Read(id)
		switch {
		case err == nil:
			return t.ID, nil
		case store.KindOf(err) != store.KindNotFound:
			return "", err
		}
	}

	return "", ResolutionError{Token: raw, Reason: ReasonUnresolvable, Searched: searched}
}

func filenameCandidates(name string) []string {
	if strings.HasSuffix(name, ".md") {
		return []string{name}
	}
	return []string{name, name + ".md"}
}

func appendSearched(searched []string, err error) []string {
	var nf store.NotFoundError
	if !errors.As(err, &nf) {
		return searched
	}
	for _, dir := range nf.Searched {
		if !slices.Contains(searched, dir) {
			searched = append(searched, dir)
		}
	}
	return searched
}
