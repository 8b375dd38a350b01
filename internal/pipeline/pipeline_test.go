package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func wait(t *testing.T, j *Job) Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := j.Wait(ctx)
	if err != nil {
		t.Fatalf("job %s did not finish: %v", j.ID(), err)
	}
	return st
}

// recorder collects the progress seen at each phase.
type recorder struct {
	mu       sync.Mutex
	progress []int
	phases   []string
}

func (r *recorder) phase(name string) Phase {
	return Phase{Name: name, Run: func(ctx context.Context, j *Job) error {
		j.Report(0.5)
		st := j.Status()
		r.mu.Lock()
		r.progress = append(r.progress, st.Progress)
		r.phases = append(r.phases, st.Phase)
		r.mu.Unlock()
		return nil
	}}
}

func TestRunner_CompletesPhasesInOrder(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	rec := &recorder{}
	j := r.Start("u1", Generation, rec.phase("analyzing"), rec.phase("building"), rec.phase("texturing"), rec.phase("finalizing"))
	st := wait(t, j)
	if st.State != Completed || st.Progress != 100 {
		t.Fatalf("Expected completed at 100, got %s at %d", st.State, st.Progress)
	}
	want := []string{"analyzing", "building", "texturing", "finalizing"}
	for i, p := range want {
		if rec.phases[i] != p {
			t.Errorf("phase %d: expected %s, got %s", i, p, rec.phases[i])
		}
	}
	for i := 1; i < len(rec.progress); i++ {
		if rec.progress[i] <= rec.progress[i-1] {
			t.Errorf("Expected increasing progress, got %v", rec.progress)
		}
	}
	if len(st.Phases) != 4 {
		t.Errorf("Expected 4 phase names in status, got %v", st.Phases)
	}
}

func TestJob_ProgressMonotonic(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	var seen []int
	j := r.Start("u1", Export, Phase{Name: "encoding", Run: func(ctx context.Context, j *Job) error {
		for _, f := range []float64{0.8, 0.2, 1.5, -1} {
			j.Report(f)
			seen = append(seen, j.Status().Progress)
		}
		return nil
	}})
	wait(t, j)
	want := []int{80, 80, 99, 99}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Expected progress %v, got %v", want, seen)
			break
		}
	}
}

func TestRunner_FailedPhase(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	boom := errors.New("disk full")
	ran := false
	j := r.Start("u1", Export,
		Phase{Name: "preparing", Run: func(context.Context, *Job) error { return boom }},
		Phase{Name: "storing", Run: func(context.Context, *Job) error { ran = true; return nil }},
	)
	st := wait(t, j)
	if st.State != Failed || st.Error != "disk full" {
		t.Errorf("Expected failed with error, got %s %q", st.State, st.Error)
	}
	if ran {
		t.Error("Expected later phases to be skipped")
	}
}

func TestRunner_PanicFails(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	j := r.Start("u1", Export, Phase{Name: "encoding", Run: func(context.Context, *Job) error { panic("bad") }})
	if st := wait(t, j); st.State != Failed {
		t.Errorf("Expected failed, got %s", st.State)
	}
}

func blocking(started chan<- struct{}) Phase {
	return Phase{Name: "building", Run: func(ctx context.Context, j *Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
}

func TestRunner_Supersede(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	started := make(chan struct{})
	first := r.Start("u1", Generation, blocking(started))
	<-started

	second := r.Start("u1", Generation, Phase{Name: "building", Run: func(ctx context.Context, j *Job) error {
		j.SetResult("second")
		return nil
	}})
	if st := wait(t, first); st.State != Canceled {
		t.Errorf("Expected superseded job canceled, got %s", st.State)
	}
	st := wait(t, second)
	if st.State != Completed || st.Result != "second" {
		t.Errorf("Expected second job completed, got %+v", st)
	}
	cur, ok := r.Current("u1", Generation)
	if !ok || cur != second {
		t.Error("Expected the newer job to stay current")
	}
	if cur.Status().State != Completed {
		t.Errorf("Expected current status completed, got %s", cur.Status().State)
	}
}

func TestRunner_KeysAreIndependent(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	started := make(chan struct{})
	gen := r.Start("u1", Generation, blocking(started))
	<-started
	other := r.Start("u2", Generation, Phase{Name: "x", Run: func(context.Context, *Job) error { return nil }})
	exp := r.Start("u1", Export, Phase{Name: "x", Run: func(context.Context, *Job) error { return nil }})
	wait(t, other)
	wait(t, exp)
	if gen.Status().State.Terminal() {
		t.Error("Expected generation job for u1 to keep running")
	}
	if !r.Cancel("u1", Generation) {
		t.Error("Expected Cancel to report a live job")
	}
	if st := wait(t, gen); st.State != Canceled {
		t.Errorf("Expected canceled, got %s", st.State)
	}
	if r.Cancel("u1", Generation) {
		t.Error("Expected second Cancel to be a no-op")
	}
}

func TestRunner_DelayIsCancelable(t *testing.T) {
	r := NewRunner(time.Hour, nil)
	j := r.Start("u1", Export, Phase{Name: "preparing", Run: func(context.Context, *Job) error { return nil }})
	if st := j.Status(); st.State != Pending {
		t.Errorf("Expected pending while waiting, got %s", st.State)
	}
	r.Close()
	if st := wait(t, j); st.State != Canceled {
		t.Errorf("Expected canceled, got %s", st.State)
	}
}

func TestRunner_Forget(t *testing.T) {
	r := NewRunner(0, nil)
	defer r.Close()
	started := make(chan struct{})
	j := r.Start("u1", Generation, blocking(started))
	<-started
	r.Forget("u1")
	if _, ok := r.Current("u1", Generation); ok {
		t.Error("Expected no current job after Forget")
	}
	if st := wait(t, j); st.State != Canceled {
		t.Errorf("Expected canceled, got %s", st.State)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("export"); err != nil || k != Export {
		t.Errorf("Expected export, got %q %v", k, err)
	}
	if _, err := ParseKind("render"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
