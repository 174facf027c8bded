package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/taskdir/pkg/store"
)

func TestSessionPersistsAcrossInvocations(t *testing.T) {
	s := setupStore(t)
	seed(t, s, fixture{title: "one"}, fixture{title: "two"}, fixture{title: "three"})

	first, err := NewSession(NewFileSnapshotStore(s.ViewsDir()))
	require.NoError(t, err)
	assert.Nil(t, first.Current())

	_, err = first.Build(s, Query{Sort: SortPriority, Page: 1, PerPage: 2})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(s.ViewsDir(), CurrentViewFile))
	require.NoError(t, err)

	second, err := NewSession(NewFileSnapshotStore(s.ViewsDir()))
	require.NoError(t, err)
	snap := second.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 2, snap.PerPage)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "two", snap.Entries[1].Title)
	assert.Equal(t, 2, snap.Entries[1].Position)
}

func TestSessionFailedBuildKeepsSnapshot(t *testing.T) {
	s := setupStore(t)
	seed(t, s, fixture{title: "only"})

	sess, err := NewSession(nil)
	require.NoError(t, err)
	_, err = sess.Build(s, query(SortPriority))
	require.NoError(t, err)
	before := sess.Current()

	_, err = sess.Build(s, Query{Sort: SortPriority, Page: 1, PerPage: 500})
	assert.Equal(t, store.KindValidation, store.KindOf(err))
	assert.Same(t, before, sess.Current())
}

func TestSessionRebuildReplacesSnapshot(t *testing.T) {
	s := setupStore(t)
	seed(t, s, fixture{title: "a"}, fixture{title: "b"})

	sess, err := NewSession(&MemorySnapshotStore{})
	require.NoError(t, err)

	_, err = sess.Build(s, Query{Sort: SortPriority, Page: 1, PerPage: 1})
	require.NoError(t, err)
	e, ok := sess.Current().Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "a", e.Title)

	_, err = sess.Build(s, Query{Sort: SortDate, Page: 1, PerPage: 1})
	require.NoError(t, err)
	e, ok = sess.Current().Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "b", e.Title)
	assert.Equal(t, SortDate, sess.Current().Sort)
}

func TestFileSnapshotStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CurrentViewFile), []byte("{not json"), 0o644))

	_, err := NewFileSnapshotStore(dir).Load()
	assert.Error(t, err)
}
