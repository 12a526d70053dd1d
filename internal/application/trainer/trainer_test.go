package trainer

import (
	"errors"
	"io"
	"testing"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/logging"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/optimizer"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/worker"
)

type persisterStub struct {
	calls   int
	weights []training.Weight
	err     error
}

func (p *persisterStub) persist(weights []training.Weight) (string, error) {
	p.calls++
	p.weights = append([]training.Weight(nil), weights...)
	if p.err != nil {
		return "", p.err
	}
	return "weights.file", nil
}

type recorderStub struct {
	improvements []int
	finalState   training.State
	finalCycles  int64
	finalAgg     int
	finalFile    string
	finals       int
}

func (r *recorderStub) RecordImprovement(cycle int64, aggregate int) error {
	r.improvements = append(r.improvements, aggregate)
	return nil
}

func (r *recorderStub) RecordFinal(state training.State, cycles int64, aggregate int, weightsFile string) error {
	r.finalState = state
	r.finalCycles = cycles
	r.finalAgg = aggregate
	r.finalFile = weightsFile
	r.finals++
	return nil
}

func discardLogger() *logging.Logger {
	return logging.New(io.Discard, "")
}

func newTestOptimizer(t *testing.T, count int, seed int64) *optimizer.Geometric {
	t.Helper()
	opt, err := optimizer.NewGeometric(count, seed, optimizer.DefaultTuning())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return opt
}

func TestNew_Validation(t *testing.T) {
	group := loadTestGroup(t, "alpha",
		[]string{"alpha", "beta"},
		[][]uint16{{1, 2, 3, 4}, {4, 3, 2, 1}})

	t.Run("no groups", func(t *testing.T) {
		if _, err := New(discardLogger(), nil, newTestOptimizer(t, 14, 1), nil, Config{MaxCycles: 1}); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("weight count mismatch", func(t *testing.T) {
		_, err := New(discardLogger(), []*Group{group}, newTestOptimizer(t, 10, 1), nil, Config{MaxCycles: 1})
		if !errors.Is(err, training.ErrWeightCountMismatch) {
			t.Errorf("expected ErrWeightCountMismatch, got %v", err)
		}
	})
}

func TestTrainer_EvaluationOnlyBudget(t *testing.T) {
	group := loadTestGroup(t, "alpha",
		[]string{"alpha", "beta"},
		[][]uint16{{1, 2, 3, 4}, {4, 3, 2, 1}})

	trainer, err := New(discardLogger(), []*Group{group}, newTestOptimizer(t, 14, 1), nil, Config{MaxCycles: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persister := &persisterStub{}
	trainer.SetPersister(persister.persist)
	trainer.Run()

	// A budget of 1 never trains: no state change, nothing persisted.
	if trainer.State() != training.StateIdle {
		t.Errorf("expected the idle state, got %s", trainer.State())
	}
	if persister.calls != 0 {
		t.Errorf("expected no weights saved, got %d saves", persister.calls)
	}
}

func TestTrainer_ConvergesImmediately(t *testing.T) {
	// A lone candidate always ranks 1, so the aggregate starts converged.
	group := loadTestGroup(t, "only", []string{"only"}, [][]uint16{{1, 2, 3, 4}})

	trainer, err := New(discardLogger(), []*Group{group}, newTestOptimizer(t, 14, 1), nil, Config{MaxCycles: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persister := &persisterStub{}
	recorder := &recorderStub{}
	trainer.SetPersister(persister.persist)
	trainer.SetRecorder(recorder)
	trainer.Run()

	if trainer.State() != training.StateConverged {
		t.Errorf("expected the converged state, got %s", trainer.State())
	}
	if persister.calls != 1 {
		t.Errorf("expected exactly one save, got %d", persister.calls)
	}
	if recorder.finals != 1 || recorder.finalState != training.StateConverged {
		t.Errorf("expected one converged final record, got %d of '%s'", recorder.finals, recorder.finalState)
	}
	if recorder.finalCycles != 0 {
		t.Errorf("expected 0 cycles spent, got %d", recorder.finalCycles)
	}
	if recorder.finalFile != "weights.file" {
		t.Errorf("expected the persisted file recorded, got '%s'", recorder.finalFile)
	}
}

func TestTrainer_StopBeforeRun(t *testing.T) {
	group := loadTestGroup(t, "alpha",
		[]string{"alpha", "beta"},
		[][]uint16{{1, 2, 3, 4}, {4, 3, 2, 1}})

	trainer, err := New(discardLogger(), []*Group{group}, newTestOptimizer(t, 14, 1), nil, Config{MaxCycles: 1000000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recorder := &recorderStub{}
	trainer.SetRecorder(recorder)
	trainer.Stop()
	trainer.Run()

	if trainer.State() != training.StateStopped {
		t.Errorf("expected the stopped state, got %s", trainer.State())
	}
	if recorder.finalCycles != 0 {
		t.Errorf("expected 0 cycles spent, got %d", recorder.finalCycles)
	}
}

func TestTrainer_ExhaustsBudget(t *testing.T) {
	// Identical twins always tie; a tie counts against the desired
	// candidate, so no weight vector can ever improve the aggregate.
	group := loadTestGroup(t, "alpha",
		[]string{"alpha", "beta"},
		[][]uint16{{1, 2, 3, 4}, {1, 2, 3, 4}})

	trainer, err := New(discardLogger(), []*Group{group}, newTestOptimizer(t, 14, 1), nil, Config{MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persister := &persisterStub{}
	recorder := &recorderStub{}
	trainer.SetPersister(persister.persist)
	trainer.SetRecorder(recorder)
	trainer.Run()

	if trainer.State() != training.StateExhausted {
		t.Errorf("expected the exhausted state, got %s", trainer.State())
	}
	if recorder.finalCycles != 5 {
		t.Errorf("expected the full 5-cycle budget spent, got %d", recorder.finalCycles)
	}
	if recorder.finalAgg != 2 {
		t.Errorf("expected the aggregate stuck at 2, got %d", recorder.finalAgg)
	}
	if len(recorder.improvements) != 0 {
		t.Errorf("expected no improvements, got %v", recorder.improvements)
	}
	if persister.calls != 1 {
		t.Errorf("expected the best weights saved anyway, got %d saves", persister.calls)
	}
}

func TestTrainer_PersistsBestNotLast(t *testing.T) {
	group := loadTestGroup(t, "alpha",
		[]string{"alpha", "beta"},
		[][]uint16{{1, 2, 3, 4}, {1, 2, 3, 4}})

	opt := newTestOptimizer(t, 14, 1)
	want := make([]training.Weight, 14)
	for i := range want {
		want[i] = training.Weight(i - 7)
	}
	if err := opt.SetWeights(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trainer, err := New(discardLogger(), []*Group{group}, opt, nil, Config{MaxCycles: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persister := &persisterStub{}
	trainer.SetPersister(persister.persist)
	trainer.Run()

	// Nothing can improve on twins, so the loaded vector stays best and
	// the failed mutations must not leak into the save.
	for i, w := range persister.weights {
		if w != want[i] {
			t.Errorf("weight %d: expected %d persisted, got %d", i, want[i], w)
		}
	}
}

func TestTrainer_PooledMatchesInline(t *testing.T) {
	cells := [][]uint16{{9, 1, 4, 7}, {2, 8, 3, 5}, {6, 6, 1, 2}}
	names := []string{"alpha", "beta", "gamma"}

	run := func(pool *worker.Pool) []training.Weight {
		groupA := loadTestGroup(t, "beta", names, cells)
		groupB := loadTestGroup(t, "gamma", names, cells)
		opt := newTestOptimizer(t, 14, 99)

		trainer, err := New(discardLogger(), []*Group{groupA, groupB}, opt, pool, Config{MaxCycles: 300})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		trainer.Run()
		return append([]training.Weight(nil), opt.Weights()...)
	}

	inline := run(nil)

	pool, err := worker.NewPool(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pool.Close()
	pooled := run(pool)

	// Evaluation is deterministic and cycles are separated by the drain
	// barrier, so the optimizer trajectory must not depend on dispatch.
	for i := range inline {
		if inline[i] != pooled[i] {
			t.Fatalf("weight %d: inline %d differs from pooled %d", i, inline[i], pooled[i])
		}
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		name       string
		cyclesLeft int64
		rate       float64
		expected   string
	}{
		{"seconds", 30, 1, "30 seconds"},
		{"minutes", 600, 1, "0 hr 10 min"},
		{"hours", 7200, 1, "2 hr 0 min"},
		{"zero rate", 100, 0, "unknown time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatETA(tt.cyclesLeft, tt.rate); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
