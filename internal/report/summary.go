package report

import (
	"sort"
	"time"

	"github.com/influxdata/tdigest"
)

// digestCompression keeps roughly 100 centroids per digest.
const digestCompression = 100

// Summary aggregates a run's samples.
type Summary struct {
	Total   int
	Counts  map[Status]int
	Workers int

	// Span is the wall time from the first sample start to the last sample end.
	Span time.Duration

	// Duration percentiles across all samples.
	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
	Max time.Duration

	// Cases holds per test case statistics, sorted by suite then case name.
	Cases []CaseSummary
}

// CaseSummary aggregates samples of a single test case.
type CaseSummary struct {
	Suite  string
	Case   string
	Total  int
	Counts map[Status]int
	P50    time.Duration
	P90    time.Duration
}

// Failures returns the number of FAILED and BROKEN samples.
func (s Summary) Failures() int {
	return s.Counts[StatusFailed] + s.Counts[StatusBroken]
}

// HasFailures reports whether any sample failed or broke.
func (s Summary) HasFailures() bool {
	return s.Failures() > 0
}

type caseKey struct{ suite, name string }

type caseAcc struct {
	counts map[Status]int
	total  int
	digest *tdigest.TDigest
}

// Summarize computes counts and duration percentiles for samples.
func Summarize(samples []Sample) Summary {
	sum := Summary{
		Total:  len(samples),
		Counts: make(map[Status]int, len(Statuses)),
	}
	if len(samples) == 0 {
		return sum
	}

	all := tdigest.NewWithCompression(digestCompression)
	cases := make(map[caseKey]*caseAcc)
	workers := make(map[string]struct{})

	var first, last time.Time
	for _, s := range samples {
		sum.Counts[s.Status]++

		d := s.Elapsed()
		all.Add(d.Seconds(), 1)
		if d > sum.Max {
			sum.Max = d
		}

		if s.WorkerID != "" {
			workers[s.WorkerID] = struct{}{}
		}

		if start := s.Started(); !start.IsZero() {
			end := start.Add(d)
			if first.IsZero() || start.Before(first) {
				first = start
			}
			if end.After(last) {
				last = end
			}
		}

		key := caseKey{s.TestSuite, s.TestCase}
		acc, ok := cases[key]
		if !ok {
			acc = &caseAcc{
				counts: make(map[Status]int),
				digest: tdigest.NewWithCompression(digestCompression),
			}
			cases[key] = acc
		}
		acc.total++
		acc.counts[s.Status]++
		acc.digest.Add(d.Seconds(), 1)
	}

	sum.Workers = len(workers)
	if !first.IsZero() {
		sum.Span = last.Sub(first)
	}
	sum.P50 = quantile(all, 0.50)
	sum.P90 = quantile(all, 0.90)
	sum.P99 = quantile(all, 0.99)

	sum.Cases = make([]CaseSummary, 0, len(cases))
	for key, acc := range cases {
		sum.Cases = append(sum.Cases, CaseSummary{
			Suite:  key.suite,
			Case:   key.name,
			Total:  acc.total,
			Counts: acc.counts,
			P50:    quantile(acc.digest, 0.50),
			P90:    quantile(acc.digest, 0.90),
		})
	}
	sort.Slice(sum.Cases, func(i, j int) bool {
		if sum.Cases[i].Suite != sum.Cases[j].Suite {
			return sum.Cases[i].Suite < sum.Cases[j].Suite
		}
		return sum.Cases[i].Case < sum.Cases[j].Case
	})

	return sum
}

func quantile(td *tdigest.TDigest, q float64) time.Duration {
	return time.Duration(td.Quantile(q) * float64(time.Second))
}
