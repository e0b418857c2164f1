package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/presenter"
	"github.com/qj0r9j0vc2/alarm-engine/internal/app"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// Options configures a Runner.
type Options struct {
	Capacity int
	Width    int
	Clock    alarm.Clock
	Logger   logger.Logger
}

// Result summarises a finished run.
type Result struct {
	Steps   int
	Events  []*entity.AlarmEvent
	Summary entity.AlarmSummary
}

// Runner replays a scenario and renders each step to out.
type Runner struct {
	registry *alarm.Registry
	ingest   *alarm.IngestProcessValueUseCase
	command  *alarm.OperatorCommandUseCase
	term     *presenter.Terminal
	out      io.Writer

	mu      sync.Mutex
	pending []*entity.AlarmEvent
	all     []*entity.AlarmEvent
}

// NewRunner registers alarms in a fresh registry. An empty alarm list
// falls back to DemoAlarms.
func NewRunner(alarms []config.AlarmConfig, out io.Writer, opts Options) (*Runner, error) {
	if len(alarms) == 0 {
		alarms = DemoAlarms()
	}
	if opts.Capacity <= 0 {
		opts.Capacity = alarm.DefaultCapacity
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	r := &Runner{
		term: presenter.NewTerminal(opts.Width),
		out:  out,
	}

	registryOpts := []alarm.Option{
		alarm.WithCapacity(opts.Capacity),
		alarm.WithPublisher(alarm.EventPublisherFunc(r.collect)),
		alarm.WithLogger(opts.Logger),
	}
	if opts.Clock != nil {
		registryOpts = append(registryOpts, alarm.WithClock(opts.Clock))
	}

	registry, err := app.NewRegistry(alarms, registryOpts...)
	if err != nil {
		return nil, err
	}

	r.registry = registry
	r.ingest = alarm.NewIngestProcessValueUseCase(registry, nil, opts.Logger)
	r.command = alarm.NewOperatorCommandUseCase(registry, opts.Logger)
	return r, nil
}

// Registry returns the registry the runner drives.
func (r *Runner) Registry() *alarm.Registry {
	return r.registry
}

func (r *Runner) collect(e *entity.AlarmEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, e)
	r.all = append(r.all, e)
}

func (r *Runner) flush() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, e := range pending {
		fmt.Fprintln(r.out, r.term.Event(e))
	}
}

// Run executes every step in order. An unknown tag is reported and the run
// continues; any other failure stops it.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	fmt.Fprintf(r.out, "%s\n\n", r.term.Title("ALARM SIMULATION: "+s.Name))

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(ctx, step); err != nil {
			if errors.Is(err, domainerrors.ErrUnknownTag) {
				fmt.Fprintln(r.out, r.term.Error(fmt.Errorf("step %d: %w", i+1, err)))
				continue
			}
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		r.flush()
	}

	r.mu.Lock()
	events := append([]*entity.AlarmEvent(nil), r.all...)
	r.mu.Unlock()

	return &Result{
		Steps:   len(s.Steps),
		Events:  events,
		Summary: r.registry.Summary(),
	}, nil
}

func (r *Runner) step(ctx context.Context, step Step) error {
	switch action := strings.ToLower(step.Action); action {
	case ActionValue:
		fmt.Fprintln(r.out, r.term.Step(fmt.Sprintf("%s = %g", step.Tag, *step.Value)))
		_, err := r.ingest.Execute(ctx, dto.ProcessValueInput{Tag: step.Tag, Value: *step.Value})
		return err

	case ActionSummary:
		summary := r.registry.Summary()
		fmt.Fprintln(r.out, r.term.Summary(summary, r.registry.ActiveAlarms()))
		return nil

	case ActionAlarms:
		fmt.Fprintln(r.out, r.term.AlarmTable(r.registry.Alarms(), -1))
		return nil

	default:
		fmt.Fprintln(r.out, r.term.Step(action+" "+step.Tag))
		operator := step.Operator
		if operator == "" {
			operator = "simulator"
		}
		_, err := r.command.Execute(ctx, dto.CommandInput{Tag: step.Tag, Action: action, Operator: operator})
		return err
	}
}

// FixedClock returns a Clock that starts at t and advances one second per call,
// so rendered timestamps are stable between runs.
func FixedClock(t time.Time) alarm.Clock {
	var mu sync.Mutex
	return alarm.ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(time.Second)
		return now
	})
}
