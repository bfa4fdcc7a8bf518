package bbolt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corey/multimatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// bbolt set store: save/load named pattern sets, survive restarts
// Expectation: sets round-trip exactly, names list in order, deletes are idempotent
// =============================================================================

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// makeTestSet creates a realistic stored set.
func makeTestSet(name string) *ports.StoredSet {
	return &ports.StoredSet{
		Name:        name,
		Description: "restriction sites",
		Alphabet:    "dna",
		Fold:        false,
		Patterns:    []string{"GAATTC", "GGATCC", "AAGCTT"},
		Source:      "/tmp/sites.txt",
		UpdatedAt:   time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func TestStore_SaveLoadSet_Roundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	original := makeTestSet("sites")

	require.NoError(t, store.SaveSet(original))

	loaded, err := store.LoadSet("sites")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, original.Name, loaded.Name)
	assert.Equal(t, original.Description, loaded.Description)
	assert.Equal(t, original.Alphabet, loaded.Alphabet)
	assert.Equal(t, original.Patterns, loaded.Patterns)
	assert.Equal(t, original.Source, loaded.Source)
	assert.True(t, original.UpdatedAt.Equal(loaded.UpdatedAt))
}

func TestStore_LoadMissingSet(t *testing.T) {
	store, _ := newTestStore(t)

	// Fresh database: no bucket yet.
	loaded, err := store.LoadSet("nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.SaveSet(makeTestSet("other")))
	loaded, err = store.LoadSet("nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSet(makeTestSet("sites")))

	updated := makeTestSet("sites")
	updated.Patterns = []string{"CCCGGG"}
	require.NoError(t, store.SaveSet(updated))

	loaded, err := store.LoadSet("sites")
	require.NoError(t, err)
	assert.Equal(t, []string{"CCCGGG"}, loaded.Patterns)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.SaveSet(nil))
	assert.Error(t, store.SaveSet(&ports.StoredSet{Patterns: []string{"a"}}))
}

func TestStore_ListSetsSorted(t *testing.T) {
	store, _ := newTestStore(t)

	names, err := store.ListSets()
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.SaveSet(makeTestSet(n)))
	}
	names, err = store.ListSets()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestStore_DeleteSet(t *testing.T) {
	store, _ := newTestStore(t)

	// Idempotent on an empty database.
	require.NoError(t, store.DeleteSet("sites"))

	require.NoError(t, store.SaveSet(makeTestSet("sites")))
	require.NoError(t, store.SaveSet(makeTestSet("keep")))
	require.NoError(t, store.DeleteSet("sites"))
	require.NoError(t, store.DeleteSet("sites"))

	loaded, err := store.LoadSet("sites")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	names, err := store.ListSets()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)
}

func TestStore_ConcurrentReads(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, store.SaveSet(makeTestSet(fmt.Sprintf("set-%02d", i))))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set, err := store.LoadSet(fmt.Sprintf("set-%02d", i%10))
			if err == nil && set == nil {
				err = fmt.Errorf("set-%02d missing", i%10)
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestStore_SetsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restart.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.SaveSet(makeTestSet("sites")))
	require.NoError(t, store1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()

	loaded, err := store2.LoadSet("sites")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, makeTestSet("sites").Patterns, loaded.Patterns)
}

// =============================================================================
// Lock contention: the 1s timeout bounds the wait while the daemon holds the DB
// =============================================================================

func TestStore_OpenTimeout_ErrorMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	defer store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.Error(t, err, "second open should fail with lock timeout")
	assert.Nil(t, store2)
	assert.Contains(t, err.Error(), "bbolt open")
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, elapsed, 3*time.Second, "should complete within 3s, not hang")
}
