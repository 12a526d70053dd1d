package trainer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/logging"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/worker"
)

// defaultSummaryPeriod is the target wall-clock spacing between progress
// checkpoints, re-estimated from recent throughput.
const defaultSummaryPeriod = 60 * time.Second

// initialSummaryCycle is the first checkpoint, before any throughput
// estimate exists.
const initialSummaryCycle = 100

// Persister saves the best weight vector on exit and returns where it
// went.
type Persister func(weights []training.Weight) (string, error)

// Recorder journals run outcomes. Implemented by storage.Journal.
type Recorder interface {
	RecordImprovement(cycle int64, aggregate int) error
	RecordFinal(state training.State, cycles int64, aggregate int, weightsFile string) error
}

// Config tunes one training run.
type Config struct {
	// MaxCycles is the cycle budget. Budgets of 1 or less skip training
	// entirely and only run the final evaluation pass.
	MaxCycles int64

	// SummaryPeriod is the target spacing between progress checkpoints.
	// Zero means the 60-second default.
	SummaryPeriod time.Duration
}

// Trainer drives cycles over the candidate groups: dispatch evaluation,
// aggregate ranks, feed the optimizer, report progress, terminate.
//
// The weight vector is the only cross-cycle shared state: read-only
// during the evaluation batch, written by the optimizer strictly between
// cycles, separated by the pool's drain barrier.
type Trainer struct {
	log     *logging.Logger
	groups  []*Group
	opt     training.Optimizer
	pool    *worker.Pool // nil evaluates inline on the calling goroutine
	persist Persister
	rec     Recorder
	cfg     Config

	stop atomic.Bool

	mu    sync.Mutex
	state training.State
}

// New validates the configuration, binds the optimizer's weight view to
// every group and returns a trainer in the idle state.
func New(log *logging.Logger, groups []*Group, opt training.Optimizer, pool *worker.Pool, cfg Config) (*Trainer, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("no candidate groups")
	}
	if cfg.SummaryPeriod <= 0 {
		cfg.SummaryPeriod = defaultSummaryPeriod
	}

	for _, group := range groups {
		count, err := group.RequiredWeightCount()
		if err != nil {
			return nil, err
		}
		if count != opt.WeightCount() {
			return nil, fmt.Errorf("%w: group '%s' requires %d weights, optimizer holds %d",
				training.ErrWeightCountMismatch, group.Name(), count, opt.WeightCount())
		}
		if err := group.BindWeights(opt.Weights()); err != nil {
			return nil, err
		}
	}

	return &Trainer{
		log:    log,
		groups: groups,
		opt:    opt,
		pool:   pool,
		cfg:    cfg,
		state:  training.StateIdle,
	}, nil
}

// SetPersister installs the weight persistence collaborator.
func (t *Trainer) SetPersister(p Persister) { t.persist = p }

// SetRecorder installs the run journal collaborator.
func (t *Trainer) SetRecorder(r Recorder) { t.rec = r }

// State returns the current lifecycle state.
func (t *Trainer) State() training.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Trainer) setState(s training.State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Stop requests a cooperative stop. Safe to call from a signal-handling
// goroutine at any time; the check happens once at the top of each cycle,
// so an in-flight cycle always completes.
func (t *Trainer) Stop() { t.stop.Store(true) }

// Run trains for up to the configured budget, then always performs one
// final full evaluation pass and reports the final ranks and ordered
// names, whether or not training ran.
func (t *Trainer) Run() {
	if t.cfg.MaxCycles > 1 {
		t.train()
	}

	// Evaluate the (best) weights one last time, or once.
	for _, group := range t.groups {
		group.EvaluateAll()
	}
	t.log.Printf("\n* The final ranks are:\n")
	t.logRanks()

	t.log.Printf("\n* The final ordered names are:\n")
	for _, group := range t.groups {
		t.log.Printf("  - In '%s':", group.Name())
		for _, member := range group.SortedBySink() {
			t.log.Printf(" %s(%d)", member.Name, member.Sink)
		}
		t.log.Printf(".\n")
	}
	t.log.Printf("\n")
}

func (t *Trainer) train() {
	t.setState(training.StateRunning)
	budget := t.cfg.MaxCycles

	t.log.Printf("\n* Will train for UP TO %d cycles...\n", budget)

	// One evaluation errand per group, reused every cycle; each group
	// owns disjoint scratch state, so the batch members never share.
	var errands []func()
	if t.pool != nil {
		errands = make([]func(), 0, len(t.groups))
		for _, group := range t.groups {
			errands = append(errands, group.EvaluateAll)
		}
	}

	groupCount := len(t.groups)
	// Worst possible aggregate: every desired candidate ranked last.
	aggregate := 0
	for _, group := range t.groups {
		aggregate += group.Size()
	}

	var cycles, lastCycles int64
	summaryAt := int64(initialSummaryCycle)
	mark := time.Now()

	for cycles = 1; !t.stop.Load() && cycles != budget+1 && aggregate > groupCount; cycles++ {
		t.dispatch(errands)

		newAggregate := 0
		for _, group := range t.groups {
			newAggregate += group.DesiredRank()
		}

		improved := newAggregate < aggregate
		if improved {
			aggregate = newAggregate
			t.opt.Apply(training.Improved)
			if t.rec != nil {
				if err := t.rec.RecordImprovement(cycles, aggregate); err != nil {
					t.log.Warning("%v\n", err)
				}
			}
		} else {
			t.opt.Apply(training.NotImproved)
		}

		if improved || cycles == summaryAt {
			elapsed := time.Since(mark).Seconds()
			if elapsed <= 0 {
				elapsed = 1e-9
			}
			rate := float64(cycles-lastCycles) / elapsed

			t.log.Printf("  - %d cycles spent (%.2f%%), %s left at %.2f cycles/sec.\n",
				cycles, float64(cycles*100)/float64(budget), formatETA(budget-cycles, rate), rate)
			t.log.Printf("    . %s\n", t.opt.Describe())
			if improved {
				t.logRanks()
			}

			// Re-target the next checkpoint to about one summary period
			// of cycles at the observed rate.
			summaryAt = cycles + int64(rate*t.cfg.SummaryPeriod.Seconds())
			if summaryAt <= cycles {
				summaryAt = cycles + 1
			}
			lastCycles = cycles
			mark = time.Now()
		}
	}
	cycles--

	var state training.State
	switch {
	case t.stop.Load():
		state = training.StateStopped
	case aggregate <= groupCount:
		state = training.StateConverged
	default:
		state = training.StateExhausted
	}
	t.setState(state)

	t.log.Printf("\n* Trained for %d cycles (%s).\n", cycles, state)

	// The last mutation may have deteriorated the live weights.
	t.opt.RestoreBest()

	var weightsFile string
	if t.persist != nil {
		t.log.Printf("\n* Saving weights...\n")
		file, err := t.persist(t.opt.Weights())
		if err != nil {
			t.log.Error("%v\n", err)
		} else {
			weightsFile = file
			t.log.Printf("  - %d weights were written to '%s'.\n", t.opt.WeightCount(), file)
		}
	}

	if t.rec != nil {
		if err := t.rec.RecordFinal(state, cycles, aggregate, weightsFile); err != nil {
			t.log.Warning("%v\n", err)
		}
	}
}

// dispatch runs one closed evaluation batch, inline or through the pool,
// and does not return before every group has been evaluated.
func (t *Trainer) dispatch(errands []func()) {
	if t.pool == nil {
		for _, group := range t.groups {
			group.EvaluateAll()
		}
		return
	}

	t.pool.SubmitBatch(errands, true)
	t.pool.WaitForDrain()
}

func (t *Trainer) logRanks() {
	total := 0
	for _, group := range t.groups {
		total += group.DesiredRank()
	}

	t.log.Printf("  - The %d ranks totalling %d are:\n", len(t.groups), total)
	for _, group := range t.groups {
		t.log.Printf("    . %d for '%s' in '%s'.\n", group.DesiredRank(), group.DesiredName(), group.Name())
	}
}

func formatETA(cyclesLeft int64, rate float64) string {
	if rate <= 0 {
		return "unknown time"
	}
	secondsLeft := int64(float64(cyclesLeft) / rate)
	if minutesLeft := secondsLeft / 60; minutesLeft > 0 {
		return fmt.Sprintf("%d hr %d min", minutesLeft/60, minutesLeft%60)
	}
	return fmt.Sprintf("%d seconds", secondsLeft)
}
