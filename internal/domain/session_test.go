package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestSessionRunsToCompletionExactlyOnce(t *testing.T) {
	for _, minutes := range SelectableMinutes {
		s := NewSession("u1", minutes)
		if err := s.Start(t0); err != nil {
			t.Fatalf("start: %v", err)
		}

		completions := 0
		for i := 0; i < minutes*60; i++ {
			if s.Tick(t0.Add(time.Duration(i+1) * time.Second)) {
				completions++
				if i != minutes*60-1 {
					t.Fatalf("%d minutes: completed early at tick %d", minutes, i+1)
				}
			}
		}
		for i := 0; i < 5; i++ {
			if s.Tick(t0) {
				completions++
			}
		}

		if completions != 1 {
			t.Fatalf("%d minutes: completions = %d, want 1", minutes, completions)
		}
		if s.Status != StatusCompleted || s.RemainingSec != 0 {
			t.Fatalf("%d minutes: status=%s remaining=%d", minutes, s.Status, s.RemainingSec)
		}
	}
}

func TestSessionPausePreservesRemaining(t *testing.T) {
	s := NewSession("u1", 1)
	if err := s.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 17; i++ {
		s.Tick(t0)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	for i := 0; i < 1000; i++ {
		if s.Tick(t0) {
			t.Fatalf("paused session completed")
		}
	}
	if s.RemainingSec != 43 {
		t.Fatalf("remaining while paused = %d, want 43", s.RemainingSec)
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	ticks := 0
	for !s.Tick(t0) {
		ticks++
	}
	if ticks+1 != 43 {
		t.Fatalf("ticks after resume = %d, want 43", ticks+1)
	}
}

func TestSessionTransitions(t *testing.T) {
	s := NewSession("u1", 25)

	if err := s.Pause(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("pause from ready: err = %v", err)
	}
	if err := s.Resume(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("resume from ready: err = %v", err)
	}
	if err := s.Cancel(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel from ready: err = %v", err)
	}
	if _, err := s.Claim(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("claim from ready: err = %v", err)
	}

	if err := s.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.ID == "" {
		t.Fatalf("started session has no id")
	}
	if err := s.Start(t0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double start: err = %v", err)
	}
	if err := s.Select(15); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("select while running: err = %v", err)
	}
	if _, err := s.Report(); !errors.Is(err, ErrStaleSession) {
		t.Fatalf("report while running: err = %v", err)
	}
}

func TestSessionCancelResetsToReady(t *testing.T) {
	s := NewSession("u1", 15)
	_ = s.Start(t0)
	firstID := s.ID
	for i := 0; i < 100; i++ {
		s.Tick(t0)
	}
	_ = s.Pause()

	if err := s.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s.Status != StatusReady || s.RemainingSec != 15*60 || s.ID != "" {
		t.Fatalf("after cancel: %+v", s)
	}

	_ = s.Start(t0)
	if s.ID == firstID {
		t.Fatalf("restart reused session id %s", firstID)
	}
}

func TestSessionSelectAndClaim(t *testing.T) {
	s := NewSession("u1", 25)
	if err := s.Select(7); !errors.Is(err, ErrInvalidMinutes) {
		t.Fatalf("select 7: err = %v", err)
	}
	if err := s.Select(1); err != nil {
		t.Fatalf("select 1: %v", err)
	}
	if s.RemainingSec != 60 {
		t.Fatalf("remaining = %d, want 60", s.RemainingSec)
	}

	_ = s.Start(t0)
	for !s.Tick(t0.Add(time.Minute)) {
	}

	if _, err := s.Claim(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("claim before credit: err = %v", err)
	}

	report, err := s.Report()
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.DurationMinutes != 1 || report.SessionID != s.ID || report.Label != DefaultLabel {
		t.Fatalf("unexpected report %+v", report)
	}

	s.Result = &SessionResult{SessionID: s.ID, PointsEarned: 60, FirstSessionOfDay: true}
	res, err := s.Claim()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.FirstSessionOfDay {
		t.Fatalf("result lost first-session flag")
	}
	if s.Status != StatusReady || s.RemainingSec != 60 {
		t.Fatalf("after claim: status=%s remaining=%d", s.Status, s.RemainingSec)
	}
}

func TestNewSessionFallsBackOnInvalidMinutes(t *testing.T) {
	s := NewSession("u1", 33)
	if s.SelectedMinutes != 25 {
		t.Fatalf("selected = %d, want 25", s.SelectedMinutes)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{60, "01:00"},
		{25 * 60, "25:00"},
		{40*60 - 1, "39:59"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
