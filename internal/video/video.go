// Package video starts teaser video generations and polls them to
// completion with a single process-wide loop.
package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is the delay between two polls of a pending operation.
const DefaultPollInterval = 10 * time.Second

// MaxPollFailures is the number of consecutive failed polls after which a
// pending video is marked failed.
const MaxPollFailures = 5

// ErrAlreadyPending is returned when an article already has a video in flight.
var ErrAlreadyPending = errors.New("video generation already pending")

// Generator is the video half of the model boundary.
type Generator interface {
	StartVideo(ctx context.Context, prompt, aspectRatio string) (string, error)
	PollVideo(ctx context.Context, operation string) (llm.VideoResult, error)
}

// Repository finds and saves articles with videos in flight.
type Repository interface {
	FindPendingVideo(ctx context.Context) (*core.Article, error)
	Update(ctx context.Context, a *core.Article) error
}

// Poller owns the polling loop. At most one loop runs at a time and it
// stops itself once no article is pending. Each tick handles at most one
// pending article.
type Poller struct {
	gen         Generator
	repo        Repository
	interval    time.Duration
	aspectRatio string

	mu       sync.Mutex
	ctx      context.Context
	loop     *cron.Cron
	done     chan struct{}
	failures map[int64]int
}

// NewPoller creates a stopped poller.
func NewPoller(gen Generator, repo Repository, interval time.Duration, aspectRatio string) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	return &Poller{gen: gen, repo: repo, interval: interval, aspectRatio: aspectRatio, failures: make(map[int64]int)}
}

// Start kicks off a video for the article, marks it pending and makes
// sure the polling loop is running.
func (p *Poller) Start(ctx context.Context, a *core.Article) error {
	if a.HasPendingVideo() {
		return ErrAlreadyPending
	}

	op, err := p.gen.StartVideo(ctx, pipeline.VideoPrompt(a), p.aspectRatio)
	if err != nil {
		return fmt.Errorf("failed to start video: %w", err)
	}
	a.Video = &core.Video{Status: core.VideoPending, Operation: op}
	if err := p.repo.Update(ctx, a); err != nil {
		return fmt.Errorf("failed to save pending video: %w", err)
	}

	logger.Info("Video generation started", "article_id", a.ID, "operation", op)
	p.ensureRunning(ctx)
	return nil
}

// Resume starts the loop if any article is pending. Reports whether it runs.
func (p *Poller) Resume(ctx context.Context) (bool, error) {
	a, err := p.repo.FindPendingVideo(ctx)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, nil
	}
	p.ensureRunning(ctx)
	return true, nil
}

func (p *Poller) ensureRunning(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loop != nil {
		return
	}

	p.ctx = ctx
	p.done = make(chan struct{})
	p.loop = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})), cron.WithLogger(cronLogger{}))
	if _, err := p.loop.AddFunc(fmt.Sprintf("@every %s", p.interval), p.run); err != nil {
		logger.Error("Failed to schedule video polling", err)
		p.loop = nil
		close(p.done)
		return
	}
	p.loop.Start()
	logger.Debug("Video polling loop started", "interval", p.interval)
}

func (p *Poller) run() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := p.Tick(ctx); err != nil {
		logger.Warn("Video poll failed", "error", err)
	}
}

// Tick polls the first pending article. It stops the loop when nothing is
// pending and reports whether the loop should keep running.
func (p *Poller) Tick(ctx context.Context) (bool, error) {
	a, err := p.repo.FindPendingVideo(ctx)
	if err != nil {
		return true, err
	}
	if a == nil {
		p.stop()
		return false, nil
	}

	res, err := p.gen.PollVideo(ctx, a.Video.Operation)
	if err != nil {
		if p.recordFailure(a.ID) < MaxPollFailures {
			return true, err
		}
		res = llm.VideoResult{Done: true, Err: fmt.Errorf("polling failed %d times: %w", MaxPollFailures, err)}
	}
	p.clearFailures(a.ID)
	if !res.Done {
		return true, nil
	}

	if res.Err != nil {
		a.Video.Status = core.VideoFailed
		a.Video.Error = res.Err.Error()
		logger.Warn("Video generation failed", "article_id", a.ID, "error", res.Err)
	} else {
		a.Video.Status = core.VideoCompleted
		a.Video.URL = res.URI
		logger.Info("Video generation completed", "article_id", a.ID)
	}
	if err := p.repo.Update(ctx, a); err != nil {
		return true, fmt.Errorf("failed to save video result: %w", err)
	}
	return true, nil
}

func (p *Poller) recordFailure(id int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[id]++
	return p.failures[id]
}

func (p *Poller) clearFailures(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failures, id)
}

func (p *Poller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return
	}
	if p.loop != nil {
		p.loop.Stop()
		p.loop = nil
	}
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	logger.Debug("Video polling loop stopped")
}

// Running reports whether the polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop != nil
}

// Wait blocks until the loop stops itself or ctx is done. It returns
// immediately when no loop was ever started.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes scheduler messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, err, keysAndValues...)
}
