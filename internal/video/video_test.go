package video

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
)

type fakeGenerator struct {
	prompt   string
	aspect   string
	results  []llm.VideoResult
	polls    []string
	startErr error
	pollErr  error
}

func (f *fakeGenerator) StartVideo(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.prompt, f.aspect = prompt, aspectRatio
	return "operations/video-1", nil
}

func (f *fakeGenerator) PollVideo(ctx context.Context, operation string) (llm.VideoResult, error) {
	f.polls = append(f.polls, operation)
	if f.pollErr != nil {
		return llm.VideoResult{}, f.pollErr
	}
	if len(f.results) == 0 {
		return llm.VideoResult{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

type fakeRepository struct {
	articles []*core.Article
	updates  int
}

func (r *fakeRepository) FindPendingVideo(ctx context.Context) (*core.Article, error) {
	for _, a := range r.articles {
		if a.HasPendingVideo() {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeRepository) Update(ctx context.Context, a *core.Article) error {
	r.updates++
	return nil
}

func newArticle(title string) *core.Article {
	a := core.NewArticle(core.Input{Theme: "旅行"}, time.Now())
	a.Title = title
	return a
}

func TestStartMarksPendingAndRunsLoop(t *testing.T) {
	gen := &fakeGenerator{}
	a := newArticle("京都の秋")
	repo := &fakeRepository{articles: []*core.Article{a}}
	p := NewPoller(gen, repo, time.Hour, "")

	if err := p.Start(context.Background(), a); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.stop()

	if !a.HasPendingVideo() || a.Video.Operation != "operations/video-1" {
		t.Errorf("Expected pending video with operation, got %+v", a.Video)
	}
	if repo.updates != 1 {
		t.Errorf("Expected pending state persisted, got %d updates", repo.updates)
	}
	if !strings.Contains(gen.prompt, "京都の秋") || gen.aspect != "16:9" {
		t.Errorf("Unexpected video request: %q %s", gen.prompt, gen.aspect)
	}
	if !p.Running() {
		t.Error("Expected polling loop to be running")
	}

	if err := p.Start(context.Background(), a); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("Expected ErrAlreadyPending, got %v", err)
	}
}

func TestTickCompletesThenStops(t *testing.T) {
	gen := &fakeGenerator{results: []llm.VideoResult{
		{Done: false},
		{Done: true, URI: "https://video.example/v.mp4"},
	}}
	a := newArticle("a")
	a.Video = &core.Video{Status: core.VideoPending, Operation: "operations/1"}
	repo := &fakeRepository{articles: []*core.Article{a}}
	p := NewPoller(gen, repo, time.Hour, "")
	ctx := context.Background()

	running, err := p.Resume(ctx)
	if err != nil || !running {
		t.Fatalf("Expected loop to resume, got %v %v", running, err)
	}

	if active, err := p.Tick(ctx); err != nil || !active {
		t.Fatalf("Expected loop active while pending, got %v %v", active, err)
	}
	if a.Video.Status != core.VideoPending {
		t.Errorf("Expected still pending, got %s", a.Video.Status)
	}

	if _, err := p.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if a.Video.Status != core.VideoCompleted || a.Video.URL != "https://video.example/v.mp4" {
		t.Errorf("Expected completed video, got %+v", a.Video)
	}

	if active, _ := p.Tick(ctx); active {
		t.Error("Expected loop to stop with nothing pending")
	}
	if p.Running() {
		t.Error("Expected loop stopped")
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Wait(waitCtx); err != nil {
		t.Errorf("Expected Wait to return after stop, got %v", err)
	}
}

func TestTickRecordsFailure(t *testing.T) {
	gen := &fakeGenerator{results: []llm.VideoResult{{Done: true, Err: errors.New("safety filter")}}}
	a := newArticle("a")
	a.Video = &core.Video{Status: core.VideoPending, Operation: "operations/1"}
	repo := &fakeRepository{articles: []*core.Article{a}}
	p := NewPoller(gen, repo, time.Hour, "")

	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if a.Video.Status != core.VideoFailed || a.Video.Error != "safety filter" {
		t.Errorf("Expected failed video, got %+v", a.Video)
	}
}

func TestTickHandlesOneArticlePerTick(t *testing.T) {
	gen := &fakeGenerator{results: []llm.VideoResult{{Done: true, URI: "u1"}, {Done: true, URI: "u2"}}}
	first := newArticle("first")
	first.Video = &core.Video{Status: core.VideoPending, Operation: "operations/1"}
	second := newArticle("second")
	second.Video = &core.Video{Status: core.VideoPending, Operation: "operations/2"}
	repo := &fakeRepository{articles: []*core.Article{first, second}}
	p := NewPoller(gen, repo, time.Hour, "")

	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(gen.polls) != 1 || gen.polls[0] != "operations/1" {
		t.Errorf("Expected a single poll of the first article, got %v", gen.polls)
	}
	if second.Video.Status != core.VideoPending {
		t.Error("Expected second article to wait for the next tick")
	}
}

func TestResumeWithNothingPending(t *testing.T) {
	p := NewPoller(&fakeGenerator{}, &fakeRepository{}, 0, "")
	running, err := p.Resume(context.Background())
	if err != nil || running {
		t.Errorf("Expected no loop, got %v %v", running, err)
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("Expected Wait to return immediately, got %v", err)
	}
	if p.interval != DefaultPollInterval {
		t.Errorf("Expected default interval, got %v", p.interval)
	}
}

func TestStartFailureLeavesArticle(t *testing.T) {
	gen := &fakeGenerator{startErr: errors.New("quota")}
	a := newArticle("a")
	repo := &fakeRepository{articles: []*core.Article{a}}
	p := NewPoller(gen, repo, time.Hour, "")

	if err := p.Start(context.Background(), a); err == nil {
		t.Fatal("Expected Start to fail")
	}
	if a.Video != nil || repo.updates != 0 || p.Running() {
		t.Error("Expected no pending state after failed start")
	}
}

func TestTickGivesUpAfterRepeatedPollErrors(t *testing.T) {
	gen := &fakeGenerator{pollErr: errors.New("operation not found")}
	a := newArticle("消えた操作")
	a.Video = &core.Video{Status: core.VideoPending, Operation: "operations/missing"}
	repo := &fakeRepository{articles: []*core.Article{a}}
	p := NewPoller(gen, repo, time.Hour, "")

	for i := 1; i < MaxPollFailures; i++ {
		if _, err := p.Tick(context.Background()); err == nil {
			t.Fatalf("Expected poll error on tick %d", i)
		}
		if !a.HasPendingVideo() {
			t.Fatalf("Expected video still pending after %d failures", i)
		}
	}

	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Expected final failure to be recorded, got %v", err)
	}
	if a.Video.Status != core.VideoFailed {
		t.Errorf("Expected failed status, got %s", a.Video.Status)
	}
	if !strings.Contains(a.Video.Error, "operation not found") {
		t.Errorf("Expected poll error recorded, got %q", a.Video.Error)
	}
	if repo.updates != 1 {
		t.Errorf("Expected one update, got %d", repo.updates)
	}

	running, err := p.Tick(context.Background())
	if err != nil || running {
		t.Errorf("Expected loop to stop with nothing pending, got running=%v err=%v", running, err)
	}
}

func TestTickResetsFailuresAfterSuccessfulPoll(t *testing.T) {
	gen := &fakeGenerator{pollErr: errors.New("temporary")}
	a := newArticle("一時的な障害")
	a.Video = &core.Video{Status: core.VideoPending, Operation: "operations/flaky"}
	repo := &fakeRepository{articles: []*core.Article{a}}
	p := NewPoller(gen, repo, time.Hour, "")

	for i := 1; i < MaxPollFailures; i++ {
		_, _ = p.Tick(context.Background())
	}
	gen.pollErr = nil
	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	gen.pollErr = errors.New("temporary")
	if _, err := p.Tick(context.Background()); err == nil {
		t.Fatal("Expected poll error")
	}
	if !a.HasPendingVideo() {
		t.Error("Expected failure count to restart after a successful poll")
	}
}
