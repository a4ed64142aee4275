// Package report renders the outcome of a calculation run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/bobbyc-brs/prime-runner/primes"
)

// ShownPrimes is how many primes are listed at each end of the summary.
const ShownPrimes = 5

// Source is the read side of a finished calculation.
type Source interface {
	SnapshotPrimes() []uint64
	SnapshotResults() []primes.ResultRecord
	Stats() primes.Stats
}

// Summary is everything the report prints.
type Summary struct {
	Limit       uint64                `json:"limit"`
	Workers     int                   `json:"workers"`
	Checked     uint64                `json:"numbers_checked"`
	PrimesFound int                   `json:"primes_found"`
	Elapsed     time.Duration         `json:"-"`
	ElapsedMS   int64                 `json:"elapsed_ms"`
	FirstPrimes []uint64              `json:"first_primes"`
	LastPrimes  []uint64              `json:"last_primes,omitempty"`
	Rows        []primes.ResultRecord `json:"rows"`
}

// Build snapshots src. rows limits the detailed results; the primes are
// listed in ascending order regardless of discovery order.
func Build(src Source, elapsed time.Duration, rows int) Summary {
	stats := src.Stats()
	found := src.SnapshotPrimes()
	slices.Sort(found)
	results := src.SnapshotResults()

	s := Summary{
		Limit:   stats.Limit,
		Workers: stats.Workers,
		// 1 is counted as checked, it is never prime
		Checked:     uint64(len(results)) + 1,
		PrimesFound: len(found),
		Elapsed:     elapsed,
		ElapsedMS:   elapsed.Milliseconds(),
		FirstPrimes: found[:min(len(found), ShownPrimes)],
		Rows:        results[:min(len(results), max(rows, 0))],
	}
	if len(found) > ShownPrimes {
		s.LastPrimes = found[len(found)-ShownPrimes:]
	}
	return s
}

// WriteStart prints the line shown before a run begins.
func WriteStart(w io.Writer, limit uint64, workers int) error {
	_, err := fmt.Fprintf(w, "Calculating primes up to %d using %d threads...\n", limit, workers)
	return err
}

// WriteText prints the console report.
func WriteText(w io.Writer, s Summary) error {
	var b strings.Builder

	b.WriteString("\n=== Prime Number Calculation Complete ===\n")
	fmt.Fprintf(&b, "Range: 1 - %d\n", s.Limit)
	fmt.Fprintf(&b, "Numbers checked: %d\n", s.Checked)
	fmt.Fprintf(&b, "Primes found: %d\n", s.PrimesFound)
	fmt.Fprintf(&b, "Total calculation time: %d ms\n", s.ElapsedMS)

	fmt.Fprintf(&b, "\nFirst %d primes: %s", len(s.FirstPrimes), joinNumbers(s.FirstPrimes))
	if len(s.LastPrimes) > 0 {
		fmt.Fprintf(&b, "\nLast %d primes: %s", len(s.LastPrimes), joinNumbers(s.LastPrimes))
	}

	fmt.Fprintf(&b, "\n\n=== Detailed Timing (first %d numbers) ===\n", len(s.Rows))
	b.WriteString("Number  | Prime? | Time (µs)\n")
	b.WriteString("--------|--------|-----------\n")
	for _, r := range s.Rows {
		verdict := "no"
		if r.IsPrime {
			verdict = "yes"
		}
		fmt.Fprintf(&b, "%7d | %6s | %d\n", r.Number, verdict, r.Elapsed.Microseconds())
	}

	b.WriteString("\nCalculation complete!\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON emits the summary as one indented JSON document.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("json encode failed: %w", err)
	}
	return nil
}

func joinNumbers(ns []uint64) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
