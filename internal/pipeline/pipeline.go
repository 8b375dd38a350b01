// Package pipeline runs named multi-phase jobs (avatar generation, export)
// as cancellable state machines. At most one job per owner and kind is
// live: starting another supersedes the previous one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a logical pipeline.
type Kind string

const (
	Generation Kind = "generation"
	Export     Kind = "export"
)

// ErrUnknownKind is returned by ParseKind.
var ErrUnknownKind = errors.New("unknown pipeline kind")

// ParseKind validates a pipeline name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Generation, Export:
		return k, nil
	}
	return "", fmt.Errorf("pipeline: %q: %w", s, ErrUnknownKind)
}

// State is the lifecycle position of a job. Between Pending and a terminal
// state the job is Running and Status.Phase names the current phase.
type State string

const (
	Pending   State = "pending"
	Running   State = "running"
	Completed State = "completed"
	Failed    State = "failed"
	Canceled  State = "canceled"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Canceled
}

// Status is a snapshot of a job.
type Status struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	Kind      Kind      `json:"kind"`
	State     State     `json:"state"`
	Phase     string    `json:"phase,omitempty"`
	Phases    []string  `json:"phases"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Result    any       `json:"result,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Phase is one named step. Run should honour ctx.
type Phase struct {
	Name string
	Run  func(ctx context.Context, j *Job) error
}

type key struct {
	owner string
	kind  Kind
}

// Runner owns the live job per (owner, kind).
type Runner struct {
	// Delay paces every phase; zero runs phases back to back.
	Delay  time.Duration
	Logger *slog.Logger

	mu     sync.Mutex
	jobs   map[key]*Job
	base   context.Context
	cancel context.CancelFunc
}

// NewRunner creates a runner whose jobs are all canceled by Close.
func NewRunner(delay time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		Delay:  delay,
		Logger: logger,
		jobs:   make(map[key]*Job),
		base:   base,
		cancel: cancel,
	}
}

// Start launches phases for (owner, kind), canceling any job already live
// for that pair. The returned job is Pending until its goroutine begins.
func (r *Runner) Start(owner string, kind Kind, phases ...Phase) *Job {
	ctx, cancel := context.WithCancel(r.base)
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	now := time.Now()
	j := &Job{
		cancel: cancel,
		done:   make(chan struct{}),
		st: Status{
			ID:        uuid.NewString(),
			Owner:     owner,
			Kind:      kind,
			State:     Pending,
			Phases:    names,
			StartedAt: now,
			UpdatedAt: now,
		},
	}

	k := key{owner, kind}
	r.mu.Lock()
	prev := r.jobs[k]
	r.jobs[k] = j
	r.mu.Unlock()
	if prev != nil {
		prev.cancel()
		r.Logger.Info("pipeline superseded", "kind", kind, "job", prev.ID(), "by", j.ID())
	}

	go r.run(ctx, j, phases)
	return j
}

// Current returns the live job for (owner, kind).
func (r *Runner) Current(owner string, kind Kind) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key{owner, kind}]
	return j, ok
}

// Cancel stops the live job for (owner, kind). It reports whether a
// non-terminal job was canceled.
func (r *Runner) Cancel(owner string, kind Kind) bool {
	j, ok := r.Current(owner, kind)
	if !ok || j.Status().State.Terminal() {
		return false
	}
	j.cancel()
	return true
}

// Forget drops every job of owner, canceling live ones.
func (r *Runner) Forget(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, j := range r.jobs {
		if k.owner == owner {
			j.cancel()
			delete(r.jobs, k)
		}
	}
}

// Close cancels every job.
func (r *Runner) Close() { r.cancel() }

func (r *Runner) run(ctx context.Context, j *Job, phases []Phase) {
	defer close(j.done)
	defer j.cancel()
	log := r.Logger.With("kind", j.st.Kind, "job", j.st.ID)

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("pipeline: phase panicked: %v", p)
			}
		}()
		for i, p := range phases {
			if err := Sleep(ctx, r.Delay); err != nil {
				return err
			}
			j.enter(i, len(phases), p.Name)
			log.Debug("pipeline phase", "phase", p.Name, "progress", j.Status().Progress)
			if err := p.Run(ctx, j); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	}()

	switch {
	case err == nil:
		j.finish(Completed, "")
		log.Info("pipeline completed")
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		j.finish(Canceled, "")
		log.Info("pipeline canceled")
	default:
		j.finish(Failed, err.Error())
		log.Error("pipeline failed", "err", err)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Job is one run of a pipeline.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	st    Status
	phase int
	n     int
}

// ID returns the job id.
func (j *Job) ID() string { return j.st.ID }

// Status returns a snapshot.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := j.st
	st.Phases = append([]string(nil), j.st.Phases...)
	return st
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job ends or ctx is done.
func (j *Job) Wait(ctx context.Context) (Status, error) {
	select {
	case <-j.done:
		return j.Status(), nil
	case <-ctx.Done():
		return j.Status(), ctx.Err()
	}
}

// Report sets progress within the current phase; frac is clamped to [0,1].
// Progress never decreases.
func (j *Job) Report(frac float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.st.State.Terminal() || j.n == 0 {
		return
	}
	frac = min(max(frac, 0), 1)
	j.setProgress(int((float64(j.phase) + frac) * 100 / float64(j.n)))
}

// SetResult records the job output surfaced in Status.Result.
func (j *Job) SetResult(v any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.st.Result = v
	j.st.UpdatedAt = time.Now()
}

func (j *Job) enter(i, n int, name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.phase, j.n = i, n
	j.st.State = Running
	j.st.Phase = name
	j.setProgress(i * 100 / n)
}

func (j *Job) finish(s State, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.st.State = s
	j.st.Error = msg
	if s == Completed {
		j.st.Phase = ""
		j.setProgress(100)
	}
	j.st.UpdatedAt = time.Now()
}

func (j *Job) setProgress(p int) {
	// A finished phase reports 100% of itself; cap below 100 until done.
	if p > 99 && j.st.State != Completed {
		p = 99
	}
	if p > j.st.Progress {
		j.st.Progress = p
	}
	j.st.UpdatedAt = time.Now()
}
