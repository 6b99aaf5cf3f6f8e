// Package drive implements the Driver (component F): the outward
// entrypoint that iterates process executions against a compiled query,
// aggregates witnesses by execution index and produces the Result output
// schema (spec.md §4.F, §6). Modeled on the teacher's WorkerPool
// (datalog/executor/worker_pool.go) for Full mode's parallel evaluation.
package drive

import (
	"context"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/eval"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/query"
)

// DefaultLiveTimeout is the wall-clock budget Live mode uses when Options
// leaves Timeout unset (spec.md §4.F: "default 30 s").
const DefaultLiveTimeout = 30 * time.Second

// Options configures one Execute call.
type Options struct {
	// Live selects single cooperative-scan, first-match mode instead of
	// Full mode's parallel evaluation of every execution.
	Live bool
	// Timeout bounds Live mode's wall-clock budget. Zero means
	// DefaultLiveTimeout. Ignored in Full mode (spec.md §5: "Full mode
	// is not cancellable mid-execution; callers enforce timeouts
	// externally").
	Timeout time.Duration
	// Workers bounds Full mode's worker pool size. Zero or negative
	// means runtime.NumCPU(), mirroring the teacher's WorkerPool.
	Workers int
	// Name is echoed back in Result.Run for the caller's own bookkeeping.
	Name string
	// Eval carries the Evaluator's optional collaborators (metric hook).
	// If Eval.Warn is left nil, Execute installs a default that logs via
	// the standard log package (spec.md §7: "SafetyAbort ... Driver logs
	// a warning" — named as the Driver's own responsibility, the one
	// documented exception to library packages never logging). Set
	// Eval.Warn explicitly to silence or redirect it.
	Eval eval.Options
}

// RunInfo records the timing/identity of one Execute call.
type RunInfo struct {
	Name  string
	Time  time.Duration
	Start time.Time
	End   time.Time
}

// Result is the Driver's output schema (spec.md §4.F, §6): the matched
// execution indices, a witness per matched index, the serialized query
// that produced them, and run timing. process_executions themselves are
// never echoed, only their indices, to keep the response size bounded.
type Result struct {
	Length          int
	Indices         []int
	DetailedResults map[int]*eval.Witness
	QueryStructure  map[string]interface{}
	Run             RunInfo
}

// Execute runs q against every execution of log (Full mode) or until the
// first match within the timeout (Live mode), per opts.
func Execute(q query.Query, logIndex *index.Log, opts Options) (*Result, error) {
	start := time.Now()

	if opts.Eval.Warn == nil {
		opts.Eval.Warn = func(msg string) { log.Printf("driver: %s", msg) }
	}

	var indices []int
	detailed := make(map[int]*eval.Witness)
	var err error

	if opts.Live {
		indices, detailed, err = runLive(q, logIndex, opts)
	} else {
		indices, detailed, err = runFull(q, logIndex, opts)
	}
	if err != nil {
		return nil, err
	}

	sort.Ints(indices)
	end := time.Now()
	return &Result{
		Length:          len(indices),
		Indices:         indices,
		DetailedResults: detailed,
		QueryStructure:  query.Serialize(q),
		Run: RunInfo{
			Name:  opts.Name,
			Time:  end.Sub(start),
			Start: start,
			End:   end,
		},
	}, nil
}

// runFull evaluates every execution in parallel over a bounded worker
// pool, order-preserving by construction (each worker writes only its own
// index's slot), matching the teacher's WorkerPool.ExecuteParallel shape.
func runFull(q query.Query, log *index.Log, opts Options) ([]int, map[int]*eval.Witness, error) {
	executions := log.Executions()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(executions) {
		workers = len(executions)
	}
	if workers < 1 {
		workers = 1
	}

	satisfied := make([]bool, len(executions))
	witnesses := make([]*eval.Witness, len(executions))
	errs := make([]error, len(executions))

	jobs := make(chan int, len(executions))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				ok, witness, err := eval.Evaluate(q, log, executions[idx], opts.Eval)
				satisfied[idx] = ok
				witnesses[idx] = witness
				errs[idx] = err
			}
		}()
	}
	for i := range executions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindEval, err, "evaluating execution %d", i)
		}
	}

	var indices []int
	detailed := make(map[int]*eval.Witness)
	for i, ok := range satisfied {
		if ok {
			indices = append(indices, i)
			detailed[i] = witnesses[i]
		}
	}
	return indices, detailed, nil
}

// runLive performs a single cooperative scan, returning as soon as one
// execution satisfies q, bounded by a wall-clock timeout (spec.md §5:
// "Live-mode wall-clock check between executions"). Raises apperr.ErrTimeout
// (KindTimeout) if the budget is exhausted before a match is found.
func runLive(q query.Query, log *index.Log, opts Options) ([]int, map[int]*eval.Witness, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultLiveTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, p := range log.Executions() {
		select {
		case <-ctx.Done():
			return nil, nil, apperr.Wrap(apperr.KindTimeout, ctx.Err(), "live mode exceeded %s budget", timeout)
		default:
		}
		ok, witness, err := eval.Evaluate(q, log, p, opts.Eval)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindEval, err, "evaluating execution %d", p.Index)
		}
		if ok {
			return []int{p.Index}, map[int]*eval.Witness{p.Index: witness}, nil
		}
	}
	return nil, nil, apperr.Wrap(apperr.KindTimeout, ctx.Err(), "live mode found no match within %s", timeout)
}
