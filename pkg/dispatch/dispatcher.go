package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openfiscal/go-eet/pkg/envelope"
	"github.com/openfiscal/go-eet/pkg/sale"
	"github.com/openfiscal/go-eet/pkg/types"
)

// Registration gateway endpoints, one per operating mode.
const (
	ProductionEndpoint = "https://prod.eet.cz/eet/services/EETServiceSOAP/v3/"
	PlaygroundEndpoint = "https://pg.eet.cz/eet/services/EETServiceSOAP/v3/"
)

// ContentType is the SOAP 1.1 media type the gateway expects.
const ContentType = "text/xml; charset=utf-8"

// DefaultTimeout bounds one transmission attempt. The legal response
// deadline budgets roughly this much per attempt.
const DefaultTimeout = 3 * time.Second

// EndpointForMode returns the fixed gateway URL for the mode.
func EndpointForMode(m types.Mode) string {
	if m == types.Playground {
		return PlaygroundEndpoint
	}
	return ProductionEndpoint
}

// Transport posts opaque bytes to an endpoint and returns the opaque reply.
// Implementations must honor context cancellation and deadline.
type Transport interface {
	Send(ctx context.Context, endpoint string, message []byte, contentType string) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, endpoint string, message []byte, contentType string) ([]byte, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, endpoint string, message []byte, contentType string) ([]byte, error) {
	return f(ctx, endpoint, message, contentType)
}

// Dispatcher orchestrates transmission of sale records and maintains the
// in-memory retry queue. Durability of the queue across process restarts
// is explicitly the caller's responsibility.
type Dispatcher struct {
	builder   *envelope.Builder
	parser    *envelope.Parser
	transport Transport
	endpoint  string
	timeout   time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	queue []*sale.Record

	// passMu serializes dispatch passes so a record is never mid-flight
	// in two passes at once.
	passMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithEndpoint overrides the gateway URL derived from the config mode.
func WithEndpoint(endpoint string) Option {
	return func(d *Dispatcher) { d.endpoint = endpoint }
}

// WithTimeout bounds each transmission attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithBuilder replaces the envelope builder, typically to pin its clock.
func WithBuilder(b *envelope.Builder) Option {
	return func(d *Dispatcher) { d.builder = b }
}

// WithParser replaces the reply parser, typically to relax verification
// against the playground gateway.
func WithParser(p *envelope.Parser) Option {
	return func(d *Dispatcher) { d.parser = p }
}

// NewDispatcher wires a scheduler for the operator configuration. The
// endpoint follows the config's mode unless overridden.
func NewDispatcher(config *sale.Config, transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		builder:   envelope.NewBuilder(config),
		parser:    envelope.NewParser(),
		transport: transport,
		endpoint:  EndpointForMode(config.Mode()),
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit attempts first delivery of an unsent record.
//
// Validation and build failures surface as errors before any network
// activity. Transport and reply-verification failures are not errors to
// the caller: they transition the record to PendingRetry and enqueue it.
// The returned response is nil in that case; the record's fiscal codes are
// valid either way and are what the receipt must print.
func (d *Dispatcher) Submit(ctx context.Context, rec *sale.Record) (*sale.Response, error) {
	if rec.State() != sale.Unsent {
		return nil, fmt.Errorf("record is %s, only unsent records can be submitted", rec.State())
	}
	resp, retry, err := d.attempt(ctx, rec)
	if err != nil {
		return nil, err
	}
	if retry {
		rec.MarkRetry()
		d.enqueue(rec)
		return nil, nil
	}
	return resp, nil
}

// Dispatch runs one full retry pass: every queued record is re-attempted
// in insertion order, records that fail again stay queued in their
// original relative order, definitive outcomes leave the queue.
func (d *Dispatcher) Dispatch(ctx context.Context) {
	d.passMu.Lock()
	defer d.passMu.Unlock()

	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	var requeue []*sale.Record
	for i, rec := range batch {
		if ctx.Err() != nil {
			// Stopped mid-pass: the remaining records were not touched
			// and simply stay queued.
			requeue = append(requeue, batch[i:]...)
			break
		}
		_, retry, err := d.attempt(ctx, rec)
		if err != nil {
			// Build is deterministic; retrying cannot fix it. Drop the
			// record rather than loop on it forever.
			d.logger.Error("envelope build failed, dropping record",
				"receipt", rec.Data().Receipt.String(), "error", err)
			continue
		}
		if retry {
			rec.MarkRetry()
			requeue = append(requeue, rec)
		}
	}

	d.mu.Lock()
	d.queue = append(requeue, d.queue...)
	d.mu.Unlock()
}

// attempt builds, sends and interprets one transmission. The retry return
// reports whether the record must loop back to the retry queue; a non-nil
// error means the envelope could not be built and no attempt was made.
func (d *Dispatcher) attempt(ctx context.Context, rec *sale.Record) (_ *sale.Response, retry bool, _ error) {
	log := d.logger.With(
		"receipt", rec.Data().Receipt.String(),
		"first_submission", rec.Header().FirstSubmission,
	)

	message, err := d.builder.Build(rec)
	if err != nil {
		return nil, false, fmt.Errorf("building envelope: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reply, err := d.transport.Send(sendCtx, d.endpoint, message, ContentType)
	if err != nil {
		log.Warn("gateway unreachable, queued for retry", "error", err)
		return nil, true, nil
	}

	resp, err := d.parser.Parse(reply)
	if err != nil {
		// The reply, not the submission, was untrustworthy; the record
		// counts as not yet delivered.
		log.Warn("reply verification failed, queued for retry", "error", err)
		return nil, true, nil
	}

	if resp.OK() {
		rec.MarkSuccess(resp)
		log.Info("sale registered", "fik", resp.FIK().String(), "uuid", rec.Header().UUID.String())
	} else {
		rec.MarkRejected(resp)
		log.Warn("sale rejected by authority",
			"code", resp.Rejection.Code.String(), "message", resp.Rejection.Message)
	}
	return resp, false, nil
}

func (d *Dispatcher) enqueue(rec *sale.Record) {
	d.mu.Lock()
	d.queue = append(d.queue, rec)
	d.mu.Unlock()
}

// QueueLen reports how many records await retry.
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Start launches the background dispatch loop, one pass per interval.
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.run(ctx, interval)
	d.logger.Info("dispatch loop started", "interval", interval, "endpoint", d.endpoint)
}

// Stop halts the dispatch loop and waits for an in-flight pass to finish.
// Record state is never corrupted by stopping: each record is either fully
// processed or left untouched in the queue.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatch loop stopped", "queued", d.QueueLen())
}

func (d *Dispatcher) run(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Dispatch(ctx)
		}
	}
}
