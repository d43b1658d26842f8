// Package paymentstatus converges a returning customer's payment page on a
// terminal state by polling the backend.
package paymentstatus

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atmanstudio/booking/internal/client/api"
	"github.com/atmanstudio/booking/internal/domain"
)

var tracer = otel.Tracer("github.com/atmanstudio/booking/internal/client/paymentstatus")

const (
	PollInterval = 7 * time.Second
	MaxFailures  = 5
)

type Fetcher interface {
	PaymentStatus(ctx context.Context, paymentID string) (*api.PaymentStatus, error)
}

// View is what the status page shows. Snapshot is the last successful
// fetch and survives later failures; Err is the last failure, cleared by
// the next success.
type View struct {
	State    domain.DisplayState
	Snapshot *api.PaymentStatus
	Err      error
	// Final is set once polling has ended on its own.
	Final bool
}

// Static is the view of a page reached without a payment id: the URL
// segment alone decides, unknown segments read as waiting.
func Static(segment string) View {
	s := domain.ParseDisplayState(segment)
	return View{State: s, Final: true}
}

type Option func(*Reconciler)

func WithClock(c clockwork.Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.interval = d }
}

func WithMaxFailures(n int) Option {
	return func(r *Reconciler) { r.maxFailures = n }
}

// Reconciler polls one payment. Polls are strictly sequential: the next one
// is scheduled only after the previous one settled.
type Reconciler struct {
	fetcher     Fetcher
	onUpdate    func(View)
	clock       clockwork.Clock
	interval    time.Duration
	maxFailures int

	mu      sync.Mutex
	view    View
	stopped bool
	cancel  context.CancelFunc

	// delivery is held while onUpdate runs so Stop can wait it out.
	delivery sync.Mutex
}

// New builds a reconciler. onUpdate, if set, receives every view change.
// It must not block and must not call Stop.
func New(f Fetcher, onUpdate func(View), opts ...Option) *Reconciler {
	r := &Reconciler{
		fetcher:     f,
		onUpdate:    onUpdate,
		clock:       clockwork.NewRealClock(),
		interval:    PollInterval,
		maxFailures: MaxFailures,
		view:        View{State: domain.DisplayWaiting},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Stop cancels the pending poll. A response arriving afterwards is
// discarded, and once Stop returns onUpdate is not called again. Safe to
// call more than once and from any goroutine other than onUpdate.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.delivery.Lock()
	defer r.delivery.Unlock()
}

// Run fetches the status at once and again every interval while the state
// is waiting. It returns on a terminal state, after MaxFailures consecutive
// failed fetches, on Stop or when ctx is done. Failed fetches are retried
// with exponential backoff starting at the poll interval.
func (r *Reconciler) Run(ctx context.Context, paymentID string) View {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.stopped {
		v := r.view
		r.mu.Unlock()
		return v
	}
	r.cancel = cancel
	r.mu.Unlock()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = r.interval
	retry.RandomizationFactor = 0
	retry.Multiplier = 2
	retry.Reset()

	failures := 0
	for {
		st, err := r.fetch(ctx, paymentID)

		r.mu.Lock()
		if r.stopped || ctx.Err() != nil {
			v := r.view
			r.mu.Unlock()
			return v
		}

		var wait time.Duration
		if err != nil {
			failures++
			r.view.Err = err
			r.view.Final = failures >= r.maxFailures
			wait = retry.NextBackOff()
		} else {
			failures = 0
			retry.Reset()
			r.view = View{
				State:    domain.DisplayStateOf(st.Status),
				Snapshot: st,
			}
			r.view.Final = r.view.State.Terminal()
			wait = r.interval
		}
		v := r.view
		r.mu.Unlock()

		if !r.deliver(v) {
			return v
		}
		if v.Final {
			return v
		}

		select {
		case <-ctx.Done():
			return r.View()
		case <-r.clock.After(wait):
		}
	}
}

// deliver hands v to onUpdate unless Stop got there first.
func (r *Reconciler) deliver(v View) bool {
	r.delivery.Lock()
	defer r.delivery.Unlock()

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return false
	}

	if r.onUpdate != nil {
		r.onUpdate(v)
	}
	return true
}

func (r *Reconciler) fetch(ctx context.Context, paymentID string) (*api.PaymentStatus, error) {
	ctx, span := tracer.Start(ctx, "paymentstatus.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("payment_id", paymentID))

	st, err := r.fetcher.PaymentStatus(ctx, paymentID)
	if err != nil {
		span.RecordError(err)
	}
	return st, err
}
