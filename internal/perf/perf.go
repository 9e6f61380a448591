// Package perf collects optional timing samples and counters for the
// scheduler and writes periodic summaries to the debug log. Collection is off
// unless NCTE_PERF is set, in which case it costs one mutex per sample.
package perf

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andyrewlee/ncte/internal/logging"
)

const (
	defaultSampleWindow = 256
	defaultIntervalMs   = 5000
)

type stat struct {
	count   int64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	samples []time.Duration
	idx     int
	full    bool
}

// StatSnapshot captures duration stats for one name.
type StatSnapshot struct {
	Name  string
	Count int64
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	P95   time.Duration
}

// CounterSnapshot captures one counter.
type CounterSnapshot struct {
	Name  string
	Value int64
}

var (
	enabled     atomic.Bool
	logInterval atomic.Int64
	lastLog     atomic.Int64

	mu       sync.Mutex
	stats    = map[string]*stat{}
	counters = map[string]int64{}
)

func init() {
	enabled.Store(isEnabled())
	logInterval.Store(int64(defaultLogInterval()))
}

// Enabled reports whether collection is on.
func Enabled() bool {
	return enabled.Load()
}

// Time returns a function that records elapsed time when invoked.
func Time(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		Record(name, time.Since(start))
	}
}

// Record captures a duration sample for the given name.
func Record(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	mu.Lock()
	s, ok := stats[name]
	if !ok {
		s = &stat{samples: make([]time.Duration, defaultSampleWindow)}
		stats[name] = s
	}
	s.count++
	s.total += d
	if s.count == 1 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.samples[s.idx] = d
	s.idx++
	if s.idx >= len(s.samples) {
		s.idx = 0
		s.full = true
	}
	mu.Unlock()

	maybeLog()
}

// Count increments a named counter by delta.
func Count(name string, delta int64) {
	if !enabled.Load() || delta == 0 {
		return
	}
	mu.Lock()
	counters[name] += delta
	mu.Unlock()

	maybeLog()
}

func maybeLog() {
	interval := time.Duration(logInterval.Load())
	if interval <= 0 {
		return
	}
	now := time.Now().UnixNano()
	last := lastLog.Load()
	if last == 0 {
		lastLog.CompareAndSwap(0, now)
		return
	}
	if time.Duration(now-last) < interval || !lastLog.CompareAndSwap(last, now) {
		return
	}
	emit("PERF")
}

// Flush logs a summary of current stats and counters immediately.
func Flush(reason string) {
	if !enabled.Load() {
		return
	}
	prefix := "PERF SUMMARY"
	if strings.TrimSpace(reason) != "" {
		prefix = fmt.Sprintf("PERF SUMMARY %s", reason)
	}
	emit(prefix)
}

func emit(prefix string) {
	statList, counterList := Snapshot()
	for _, s := range statList {
		logging.Info("%s %s count=%d avg=%s p95=%s min=%s max=%s",
			prefix, s.Name, s.Count, s.Avg, s.P95, s.Min, s.Max)
	}
	for _, c := range counterList {
		logging.Info("%s %s count=%d", prefix, c.Name, c.Value)
	}
}

// Snapshot returns the current stats and counters sorted by name, and resets
// them.
func Snapshot() ([]StatSnapshot, []CounterSnapshot) {
	mu.Lock()
	defer mu.Unlock()

	statList := make([]StatSnapshot, 0, len(stats))
	for name, s := range stats {
		if s.count == 0 {
			continue
		}
		statList = append(statList, StatSnapshot{
			Name:  name,
			Count: s.count,
			Avg:   time.Duration(int64(s.total) / s.count),
			Min:   s.min,
			Max:   s.max,
			P95:   computeP95(s.samples, s.idx, s.full),
		})
		*s = stat{samples: s.samples}
	}

	counterList := make([]CounterSnapshot, 0, len(counters))
	for name, v := range counters {
		if v != 0 {
			counterList = append(counterList, CounterSnapshot{Name: name, Value: v})
		}
	}
	counters = map[string]int64{}

	sort.Slice(statList, func(i, j int) bool { return statList[i].Name < statList[j].Name })
	sort.Slice(counterList, func(i, j int) bool { return counterList[i].Name < counterList[j].Name })
	return statList, counterList
}

// EnableForTest forces collection on with periodic logging off. It returns a
// function restoring the previous settings.
func EnableForTest() func() {
	prevEnabled := enabled.Load()
	prevInterval := logInterval.Load()
	enabled.Store(true)
	logInterval.Store(0)
	lastLog.Store(0)
	Snapshot()
	return func() {
		enabled.Store(prevEnabled)
		logInterval.Store(prevInterval)
		Snapshot()
	}
}

func computeP95(samples []time.Duration, idx int, full bool) time.Duration {
	n := idx
	if full {
		n = len(samples)
	}
	if n == 0 {
		return 0
	}
	window := make([]time.Duration, n)
	copy(window, samples[:n])
	sort.Slice(window, func(i, j int) bool {
		return window[i] < window[j]
	})
	pos := int(math.Ceil(0.95*float64(n))) - 1
	if pos < 0 {
		pos = 0
	}
	return window[pos]
}

func isEnabled() bool {
	raw := strings.TrimSpace(os.Getenv("NCTE_PERF"))
	if raw == "" {
		return false
	}
	switch strings.ToLower(raw) {
	case "0", "false", "no":
		return false
	default:
		return true
	}
}

func defaultLogInterval() time.Duration {
	interval := defaultIntervalMs
	if raw := strings.TrimSpace(os.Getenv("NCTE_PERF_INTERVAL_MS")); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			interval = val
		}
	}
	return time.Duration(interval) * time.Millisecond
}
