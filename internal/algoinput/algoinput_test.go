package algoinput

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_Load(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Exact date file is preferred", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-09-live.csv", "hour,trade,tp,sl,weight\n12,true,9,9,9\n")
		writeFile(t, dir, "algorithm_input-2026-03-10-live.csv", "hour,trade,tp,sl,weight\n12,true,4,1,0.5\n")

		table, err := NewLoader(dir).Load("live", date)
		require.NoError(t, err)

		p, ok := table.Lookup(12)
		require.True(t, ok)
		assert.Equal(t, Params{Trade: true, TP: 4, SL: 1, Weight: 0.5}, p)
	})

	t.Run("Falls back to the most recent file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-07-live.csv", "hour,trade,tp,sl,weight\n3,true,2,0.5,1\n")
		writeFile(t, dir, "algorithm_input-2026-03-09-live.csv", "hour,trade,tp,sl,weight\n3,true,3,0.7,1\n")

		table, err := NewLoader(dir).Load("live", date)
		require.NoError(t, err)

		p, ok := table.Lookup(3)
		require.True(t, ok)
		assert.Equal(t, 3.0, p.TP)
	})

	t.Run("Strategy types do not cross over", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-10-reversed.csv", "hour,trade,tp,sl,weight\n12,true,2,0.5,1\n")

		_, err := NewLoader(dir).Load("live", date)
		assert.Error(t, err)
	})

	t.Run("Missing hour means disabled", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-10-live.csv", "hour,trade,tp,sl,weight\n12,true,4,1,0.5\n")

		table, err := NewLoader(dir).Load("live", date)
		require.NoError(t, err)

		_, ok := table.Lookup(13)
		assert.False(t, ok)
	})

	t.Run("Missing directory is an error", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope")).Load("live", date)
		assert.Error(t, err)
	})

	t.Run("Missing column is an error", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-10-live.csv", "hour,trade,tp,sl\n12,true,4,1\n")

		_, err := NewLoader(dir).Load("live", date)
		assert.Error(t, err)
	})

	t.Run("Column order does not matter", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-10-live.csv", "weight,sl,tp,trade,hour\n0.5,1,4,true,12\n")

		table, err := NewLoader(dir).Load("live", date)
		require.NoError(t, err)

		p, ok := table.Lookup(12)
		require.True(t, ok)
		assert.Equal(t, Params{Trade: true, TP: 4, SL: 1, Weight: 0.5}, p)
	})

	t.Run("Invalid row values are errors", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "algorithm_input-2026-03-10-live.csv", "hour,trade,tp,sl,weight\ntwelve,true,4,1,0.5\n")

		_, err := NewLoader(dir).Load("live", date)
		assert.Error(t, err)
	})
}

func TestTable_Lookup_Nil(t *testing.T) {
	var table *Table
	_, ok := table.Lookup(12)
	assert.False(t, ok)
}
