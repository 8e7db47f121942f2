package mail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultSendTimeout = 10 * time.Second
)

type verificationJob struct {
	email string
	token string
}

// Dispatcher sends verification mail in the background so that signup and
// resend requests never wait on the mail provider. Jobs are dropped, with a
// log entry, when the queue is full.
type Dispatcher struct {
	sender  Sender
	baseURL string
	log     *zap.Logger

	jobs    chan verificationJob
	workers int
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of concurrent senders.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets how many messages may wait for a worker.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.jobs = make(chan verificationJob, n)
		}
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewDispatcher creates a dispatcher that links to baseURL in its messages.
func NewDispatcher(sender Sender, baseURL string, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		baseURL: baseURL,
		log:     log,
		jobs:    make(chan verificationJob, defaultQueueSize),
		workers: defaultWorkers,
		timeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. They run until Close.
func (d *Dispatcher) Start() {
	for range d.workers {
		d.wg.Add(1)
		go d.run()
	}
}

// Close stops accepting mail and blocks until the workers have delivered
// everything already queued. Mail offered after Close is dropped and logged.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// NotifyVerification queues a verification mail for email.
func (d *Dispatcher) NotifyVerification(email, token string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("mail dispatcher closed, verification mail dropped", zap.String("email", email))
		return
	}
	select {
	case d.jobs <- verificationJob{email: email, token: token}:
	default:
		d.log.Warn("mail queue full, verification mail dropped", zap.String("email", email))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job verificationJob) {
	msg, err := VerificationMessage(d.baseURL, job.email, job.token)
	if err != nil {
		d.log.Error("failed to render verification mail", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Error("failed to send verification mail", zap.String("email", job.email), zap.Error(err))
		return
	}
	d.log.Info("verification mail sent", zap.String("email", job.email))
}
