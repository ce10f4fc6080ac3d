package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
)

type blockingPort struct {
	entered   chan struct{}
	release   chan struct{}
	enterOnce sync.Once
}

func (p *blockingPort) Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error) {
	p.enterOnce.Do(func() { close(p.entered) })
	<-p.release
	return true, nil
}

type erroringPort struct{}

func (erroringPort) Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error) {
	return false, errors.New("prompt dismissed")
}

func TestConfirmationGateAccepted(t *testing.T) {
	gate := NewConfirmationGate(StaticConfirmation(true))
	ok, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "delete"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected confirmation")
	}
}

func TestConfirmationGateDeclinedIsNotAnError(t *testing.T) {
	gate := NewConfirmationGate(StaticConfirmation(false))
	ok, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "delete"})
	if err != nil {
		t.Fatalf("declined must not error, got: %v", err)
	}
	if ok {
		t.Fatal("expected declined")
	}
}

func TestConfirmationGateDismissedCountsAsDeclined(t *testing.T) {
	gate := NewConfirmationGate(erroringPort{})
	ok, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "delete"})
	if err != nil {
		t.Fatalf("dismissed must not error, got: %v", err)
	}
	if ok {
		t.Fatal("expected declined")
	}
}

func TestConfirmationGateRejectsConcurrentPrompt(t *testing.T) {
	port := &blockingPort{entered: make(chan struct{}), release: make(chan struct{})}
	gate := NewConfirmationGate(port)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "first"})
		if err != nil || !ok {
			t.Errorf("first prompt: ok=%v err=%v", ok, err)
		}
	}()
	<-port.entered

	// second prompt while the first is outstanding must conflict, not queue
	_, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "second"})
	if err == nil {
		t.Fatal("expected a conflict while the first prompt was pending")
	}
	if utils.KindOf(err) != utils.ErrorKindConflict {
		t.Fatalf("got kind %s, want conflict", utils.KindOf(err))
	}

	close(port.release)
	wg.Wait()

	// slot is free again after the first prompt resolves
	ok, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "third"})
	if err != nil || !ok {
		t.Fatalf("third prompt: ok=%v err=%v", ok, err)
	}
}

func TestConfirmationGateNilPort(t *testing.T) {
	gate := NewConfirmationGate(nil)
	_, err := gate.Ask(context.Background(), ConfirmationPrompt{Action: "delete"})
	if err == nil {
		t.Fatal("expected error for missing port")
	}
	if utils.KindOf(err) != utils.ErrorKindConflict {
		t.Fatalf("got kind %s, want conflict", utils.KindOf(err))
	}
}
