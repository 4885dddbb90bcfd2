// Package algoinput reads the per-hour strategy parameter tables that
// drive entry derivation. Tables are CSV files produced daily by an
// external optimizer, one per strategy type ("live" and "reversed").
package algoinput

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Params is one hour row of an algorithm input table.
type Params struct {
	Trade  bool
	TP     float64 // take-profit, percent
	SL     float64 // stop-loss, percent
	Weight float64
}

// Table holds the per-hour parameters for one day and strategy type.
type Table struct {
	rows map[int]Params
}

// Lookup returns the parameters for an hour. A missing hour means the
// strategy is disabled for that hour.
func (t *Table) Lookup(hour int) (Params, bool) {
	if t == nil || t.rows == nil {
		return Params{}, false
	}
	p, ok := t.rows[hour]
	return p, ok
}

// Loader reads algorithm input tables from a directory of CSV files
// named algorithm_input-<YYYY-MM-DD>-<strategyType>.csv.
type Loader struct {
	Dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Load reads the table for the given strategy type and date. When the
// exact date file is missing it falls back to the most recent file of
// that strategy type. A missing table is not an error for callers: they
// must treat it as "disabled for every hour."
func (l *Loader) Load(strategyType string, date time.Time) (*Table, error) {
	exact := filepath.Join(l.Dir, fmt.Sprintf("algorithm_input-%s-%s.csv", date.Format("2006-01-02"), strategyType))
	if table, err := readTable(exact); err == nil {
		return table, nil
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading algo input dir %s: %w", l.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "algorithm_input-") && strings.Contains(name, strategyType) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no algorithm input file for strategy type %q in %s", strategyType, l.Dir)
	}
	sort.Strings(names)
	return readTable(filepath.Join(l.Dir, names[len(names)-1]))
}

func readTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{rows: map[int]Params{}}, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"hour", "trade", "tp", "sl", "weight"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, required)
		}
	}

	rows := make(map[int]Params, len(records)-1)
	for _, rec := range records[1:] {
		hour, err := strconv.Atoi(strings.TrimSpace(rec[col["hour"]]))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid hour %q: %w", path, rec[col["hour"]], err)
		}
		trade, err := strconv.ParseBool(strings.TrimSpace(rec[col["trade"]]))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid trade flag %q: %w", path, rec[col["trade"]], err)
		}
		tp, err := strconv.ParseFloat(strings.TrimSpace(rec[col["tp"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid tp %q: %w", path, rec[col["tp"]], err)
		}
		sl, err := strconv.ParseFloat(strings.TrimSpace(rec[col["sl"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid sl %q: %w", path, rec[col["sl"]], err)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(rec[col["weight"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid weight %q: %w", path, rec[col["weight"]], err)
		}
		rows[hour] = Params{Trade: trade, TP: tp, SL: sl, Weight: weight}
	}
	return &Table{rows: rows}, nil
}
