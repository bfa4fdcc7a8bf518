package patternset

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/corey/multimatch/internal/ports"
	"github.com/corey/multimatch/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_YAML(t *testing.T) {
	s, err := Parse([]byte(`
name: greetings
description: hello in two languages
alphabet: printable
fold: true
patterns:
  - hello
  - hola
`))
	require.NoError(t, err)
	assert.Equal(t, "greetings", s.Name)
	assert.Equal(t, "printable", s.Alphabet)
	assert.True(t, s.Fold)
	assert.Equal(t, []string{"hello", "hola"}, s.Patterns)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("patterns: [a]"))
	assert.ErrorIs(t, err, ErrNoName)

	_, err = Parse([]byte("name: x\nalphabet: klingon\n"))
	assert.ErrorIs(t, err, automaton.ErrUnknownAlphabet)

	_, err = Parse([]byte("name: [unclosed"))
	assert.Error(t, err)
}

func TestParseLines(t *testing.T) {
	s := ParseLines("list", []byte("# comment\nhe\n\n  she  \r\nhers\n"))
	assert.Equal(t, "list", s.Name)
	assert.Equal(t, []string{"he", "she", "hers"}, s.Patterns)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "animals.txt")
	require.NoError(t, os.WriteFile(txt, []byte("cat\ndog\n"), 0644))
	s, err := LoadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "animals", s.Name)
	assert.Equal(t, txt, s.Source)
	assert.Equal(t, []string{"cat", "dog"}, s.Patterns)

	yml := filepath.Join(dir, "set.yml")
	require.NoError(t, os.WriteFile(yml, []byte("name: named\npatterns: [x]\n"), 0644))
	s, err = LoadFile(yml)
	require.NoError(t, err)
	assert.Equal(t, "named", s.Name)

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestLoadFS_SortedAndUnique(t *testing.T) {
	fsys := fstest.MapFS{
		"sets/b.yaml":     {Data: []byte("name: second\npatterns: [b]\n")},
		"sets/a.yaml":     {Data: []byte("name: first\npatterns: [a]\n")},
		"sets/readme.txt": {Data: []byte("ignored")},
	}
	got, err := LoadFS(fsys, "sets")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "second", got[1].Name)

	fsys["sets/c.yaml"] = &fstest.MapFile{Data: []byte("name: first\npatterns: [c]\n")}
	_, err = LoadFS(fsys, "sets")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLoadFS_Builtins(t *testing.T) {
	builtins, err := LoadFS(sets.FS, ".")
	require.NoError(t, err)

	names := make([]string, len(builtins))
	for i, s := range builtins {
		names[i] = s.Name
		assert.NotEmpty(t, s.Patterns, s.Name)
		_, err := s.Build("")
		assert.NoError(t, err, s.Name)
	}
	assert.Contains(t, names, "classic")
	assert.Contains(t, names, "dna-sites")
	assert.Contains(t, names, "secrets")
}

func TestBuild_UsesSetAlphabetAndFold(t *testing.T) {
	s := &Set{Name: "s", Alphabet: "printable", Fold: true, Patterns: []string{"API_KEY"}}
	a, err := s.Build("lower")
	require.NoError(t, err)
	assert.Equal(t, automaton.Printable, a.Alphabet())
	assert.Equal(t, ports.Matches{0: {4, 16}}, a.Search("set api_key and API_key"))
}

func TestBuild_FallbackAlphabet(t *testing.T) {
	s := &Set{Name: "s", Patterns: []string{"ACGT"}}
	a, err := s.Build("dna")
	require.NoError(t, err)
	assert.Equal(t, automaton.DNA, a.Alphabet())

	a, err = s.Build("")
	require.NoError(t, err)
	assert.Equal(t, automaton.Lowercase, a.Alphabet())

	_, err = s.Build("klingon")
	assert.ErrorIs(t, err, automaton.ErrUnknownAlphabet)
}

func TestStoredRoundtrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &Set{Name: "s", Description: "d", Alphabet: "dna", Fold: true, Patterns: []string{"A"}, Source: "f.txt"}
	st := s.Stored(now)
	assert.Equal(t, now, st.UpdatedAt)
	assert.Equal(t, s, FromStored(st))
}

func TestFilter(t *testing.T) {
	names := []string{"dna-sites", "secrets", "dna-motifs", "classic"}
	assert.Equal(t, []string{"dna-motifs", "dna-sites"}, Filter(names, "dna-*"))
	assert.Equal(t, []string{"classic", "dna-motifs", "dna-sites", "secrets"}, Filter(names, ""))
	assert.Equal(t, []string{"secrets"}, Filter(names, "sec?ets"))
	assert.Nil(t, Filter(names, "nope*"))
}
