// Package summary computes the statistics of a finished batch.
package summary

import (
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/pkg/record"
)

// DefaultSampleSize is the number of example entries per bucket
const DefaultSampleSize = 3

// Entry is the part of a record or scan row the summary looks at.
type Entry struct {
	File           string           `json:"file" yaml:"file"`
	ReturnCode     int              `json:"return_code" yaml:"return_code"`
	Crashed        bool             `json:"crashed" yaml:"crashed"`
	SanitizerBug   bool             `json:"sanitizer_bug" yaml:"sanitizer_bug"`
	Result         sanitizer.Result `json:"result" yaml:"result"`
	SanitizerError string           `json:"sanitizer_error,omitempty" yaml:"sanitizer_error,omitempty"`
}

type ReturnCodeCount struct {
	ReturnCode int `json:"return_code" yaml:"return_code"`
	Count      int `json:"count" yaml:"count"`
}

// Buckets group the entries by the agreement of the two flags.
type Buckets struct {
	// Crashed and flagged by the sanitizer
	Confirmed []*Entry `json:"confirmed" yaml:"confirmed"`
	// Exactly one of the flags is set
	Discordant []*Entry `json:"discordant" yaml:"discordant"`
	// Neither crashed nor flagged
	Clean []*Entry `json:"clean" yaml:"clean"`
}

type BatchSummary struct {
	Total   int                      `json:"total" yaml:"total"`
	Skipped int                      `json:"skipped" yaml:"skipped"`
	Results map[sanitizer.Result]int `json:"results" yaml:"results"`

	CrashedYes                 int `json:"crashed_yes" yaml:"crashed_yes"`
	CrashedNo                  int `json:"crashed_no" yaml:"crashed_no"`
	SanitizerBugYes            int `json:"sanitizer_bug_yes" yaml:"sanitizer_bug_yes"`
	SanitizerBugNo             int `json:"sanitizer_bug_no" yaml:"sanitizer_bug_no"`
	CrashedAndSanitizerBug     int `json:"crashed_and_sanitizer_bug" yaml:"crashed_and_sanitizer_bug"`
	CrashedWithoutSanitizerBug int `json:"crashed_without_sanitizer_bug" yaml:"crashed_without_sanitizer_bug"`

	Confirmed  int `json:"confirmed" yaml:"confirmed"`
	Discordant int `json:"discordant" yaml:"discordant"`
	Clean      int `json:"clean" yaml:"clean"`

	// Sorted by return code
	ReturnCodes []ReturnCodeCount `json:"return_codes" yaml:"return_codes"`
	Samples     Buckets           `json:"samples" yaml:"samples"`
}

// FromRecords summarizes the records of a triage batch. Nil records are
// items which were skipped. An execution counts as crashed if it exited
// non-zero or timed out and as a sanitizer bug if it was classified as
// crash.
func FromRecords(records []*record.CrashRecord, k int, rng *rand.Rand) *BatchSummary {
	var entries []*Entry
	skipped := 0
	for _, rec := range records {
		if rec == nil {
			skipped++
			continue
		}
		entries = append(entries, &Entry{
			File:           filepath.Base(rec.InputFile),
			ReturnCode:     rec.ReturnCode,
			Crashed:        rec.ReturnCode != 0 || rec.Result == sanitizer.ResultTimeout,
			SanitizerBug:   rec.Result == sanitizer.ResultCrash,
			Result:         rec.Result,
			SanitizerError: rec.SanitizerError,
		})
	}
	s := fromEntries(entries, k, rng)
	s.Skipped = skipped
	return s
}

// FromScanRows summarizes the rows of a bulk scan. Nil rows are items
// which were skipped. The scan has no notion of timeouts, rows flagged
// as sanitizer bug count as crash, all others as ok.
func FromScanRows(rows []*record.ScanRow, k int, rng *rand.Rand) *BatchSummary {
	var entries []*Entry
	skipped := 0
	for _, row := range rows {
		if row == nil {
			skipped++
			continue
		}
		result := sanitizer.ResultOK
		if row.SanitizerBug {
			result = sanitizer.ResultCrash
		}
		entries = append(entries, &Entry{
			File:         row.File,
			ReturnCode:   row.ReturnCode,
			Crashed:      row.Crashed,
			SanitizerBug: row.SanitizerBug,
			Result:       result,
		})
	}
	s := fromEntries(entries, k, rng)
	s.Skipped = skipped
	return s
}

func fromEntries(entries []*Entry, k int, rng *rand.Rand) *BatchSummary {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &BatchSummary{
		Total:   len(entries),
		Results: map[sanitizer.Result]int{},
	}
	returnCodes := map[int]int{}
	var buckets Buckets

	for _, e := range entries {
		s.Results[e.Result]++
		returnCodes[e.ReturnCode]++

		if e.Crashed {
			s.CrashedYes++
		} else {
			s.CrashedNo++
		}
		if e.SanitizerBug {
			s.SanitizerBugYes++
		} else {
			s.SanitizerBugNo++
		}

		switch {
		case e.Crashed && e.SanitizerBug:
			s.CrashedAndSanitizerBug++
			buckets.Confirmed = append(buckets.Confirmed, e)
		case e.Crashed:
			s.CrashedWithoutSanitizerBug++
			buckets.Discordant = append(buckets.Discordant, e)
		case e.SanitizerBug:
			buckets.Discordant = append(buckets.Discordant, e)
		default:
			buckets.Clean = append(buckets.Clean, e)
		}
	}

	codes := maps.Keys(returnCodes)
	slices.Sort(codes)
	for _, code := range codes {
		s.ReturnCodes = append(s.ReturnCodes, ReturnCodeCount{ReturnCode: code, Count: returnCodes[code]})
	}

	s.Confirmed = len(buckets.Confirmed)
	s.Discordant = len(buckets.Discordant)
	s.Clean = len(buckets.Clean)
	s.Samples = Buckets{
		Confirmed:  Sample(buckets.Confirmed, k, rng),
		Discordant: Sample(buckets.Discordant, k, rng),
		Clean:      Sample(buckets.Clean, k, rng),
	}
	return s
}

// Sample picks k elements of list uniformly at random without
// replacement, keeping their relative order. If list has no more than k
// elements, all of them are returned.
func Sample[T any](list []T, k int, rng *rand.Rand) []T {
	if k <= 0 || len(list) == 0 {
		return []T{}
	}
	if len(list) <= k {
		return append([]T{}, list...)
	}

	indices := rng.Perm(len(list))[:k]
	sort.Ints(indices)
	res := make([]T, k)
	for i, index := range indices {
		res[i] = list[index]
	}
	return res
}
