// Package tracking polls a user's latest order while live updates are on.
package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"canteen/internal/models"
)

// FetchFunc reads the current latest order.
type FetchFunc func(ctx context.Context) (models.Order, error)

// Update is one poll result. Err is set when the read failed; polling
// continues at the next tick.
type Update struct {
	Order models.Order
	Err   error
	At    time.Time
}

// Poller issues reads only between Start and Stop. Updates keeps the most
// recent result; an unread older result is replaced.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	logger   *zap.Logger
	updates  chan Update

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(fetch FetchFunc, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
		logger:   logger.Named("tracking"),
		updates:  make(chan Update, 1),
	}
}

func (p *Poller) Updates() <-chan Update {
	return p.updates
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Start reads immediately and then once per interval until Stop or until ctx
// is done. It reports false when the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.run(runCtx, done)
	return true
}

// Stop halts polling and waits for an in-flight read to finish. No read is
// issued after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	order, err := p.fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Debug("latest order read failed", zap.Error(err))
	}
	p.publish(Update{Order: order, Err: err, At: time.Now()})
}

func (p *Poller) publish(u Update) {
	for {
		select {
		case p.updates <- u:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}
