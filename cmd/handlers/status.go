package handlers

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// status is a single-line spinner shown while a model call is running.
type status struct {
	out     io.Writer
	mu      sync.Mutex
	label   string
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func startStatus(out io.Writer, label string) *status {
	s := &status{out: out, label: label, done: make(chan struct{})}
	s.wg.Add(1)
	go s.spin()
	return s
}

func (s *status) spin() {
	defer s.wg.Done()
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		s.mu.Lock()
		fmt.Fprintf(s.out, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.label)
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// Update changes the label.
func (s *status) Update(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

// Stop clears the line. Safe to call more than once.
func (s *status) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	fmt.Fprint(s.out, "\r\033[K")
}

// withSpinner shows label while fn runs and always clears the line afterwards.
func withSpinner(out io.Writer, label string, fn func() error) error {
	s := startStatus(out, label)
	defer s.Stop()
	return fn()
}
