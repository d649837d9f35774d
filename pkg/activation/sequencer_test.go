package activation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestSequencer_SuccessRefreshesOnce(t *testing.T) {
	logger, buf := newTestLogger()
	refreshes := 0
	s := NewSequencer(func() { refreshes++ }, logger)

	s.Run(context.Background(), func(context.Context) error { return nil })

	if refreshes != 1 {
		t.Errorf("refresh called %d times, want 1", refreshes)
	}
	if strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("unexpected error line: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "startup sync completed") {
		t.Errorf("missing success line: %s", buf.String())
	}
}

func TestSequencer_FailureIsAbsorbed(t *testing.T) {
	logger, buf := newTestLogger()
	refreshes := 0
	s := NewSequencer(func() { refreshes++ }, logger)

	s.Run(context.Background(), func(context.Context) error { return errors.New("Disk read failed") })

	if refreshes != 0 {
		t.Errorf("refresh called %d times after failure", refreshes)
	}
	if !strings.Contains(buf.String(), "Disk read failed") {
		t.Errorf("log does not contain failure text: %s", buf.String())
	}
}

func TestSequencer_PanicIsAbsorbed(t *testing.T) {
	logger, buf := newTestLogger()
	refreshed := false

	Run(context.Background(), func(context.Context) error { panic("index out of range") }, func() { refreshed = true }, logger)

	if refreshed {
		t.Error("refresh ran after a panicking sync")
	}
	if !strings.Contains(buf.String(), "index out of range") {
		t.Errorf("log does not contain panic text: %s", buf.String())
	}
}

func TestSequencer_RunsAtMostOnce(t *testing.T) {
	logger, _ := newTestLogger()
	syncs := 0
	s := NewSequencer(nil, logger)

	for i := 0; i < 3; i++ {
		s.Run(context.Background(), func(context.Context) error {
			syncs++
			return nil
		})
	}

	if syncs != 1 {
		t.Errorf("sync ran %d times, want 1", syncs)
	}
}
