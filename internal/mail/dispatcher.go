package mail

import (
	"context"
	"log/slog"
	"time"
)

const asyncSendTimeout = 30 * time.Second

// Dispatcher applies the delivery policy around a Mailer.
//
// With failSilently unset, Send returns the delivery error. With async set,
// Send returns immediately and failures are only logged.
type Dispatcher struct {
	mailer       Mailer
	failSilently bool
	async        bool
	logger       *slog.Logger
	onFailure    func()
}

type Option func(*Dispatcher)

func FailSilently(v bool) Option { return func(d *Dispatcher) { d.failSilently = v } }

func Async(v bool) Option { return func(d *Dispatcher) { d.async = v } }

func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// OnFailure registers a hook run after every failed delivery.
func OnFailure(fn func()) Option { return func(d *Dispatcher) { d.onFailure = fn } }

func NewDispatcher(m Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{mailer: m, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	if d.async {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncSendTimeout)
			defer cancel()
			_ = d.deliver(ctx, msg)
		}()
		return nil
	}

	err := d.deliver(ctx, msg)
	if d.failSilently {
		return nil
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	err := d.mailer.Send(ctx, msg)
	if err != nil {
		d.logger.Error("mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		if d.onFailure != nil {
			d.onFailure()
		}
	}
	return err
}
