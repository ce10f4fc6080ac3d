package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
)

// ConfirmationPrompt describes a destructive operation before it runs. The
// proposal is side-effect-free: nothing is written until the port answers
// affirmatively.
type ConfirmationPrompt struct {
	Action  string `json:"action"`
	Summary string `json:"summary"`
}

// ConfirmationPort answers confirmation prompts. The HTTP surface implements
// it from a request parameter; tests implement it directly.
type ConfirmationPort interface {
	Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error)
}

// StaticConfirmation answers every prompt with a fixed value.
type StaticConfirmation bool

func (s StaticConfirmation) Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error) {
	return bool(s), nil
}

// ConfirmationGate serializes prompts: at most one may be outstanding at a
// time. A second concurrent prompt is rejected as a conflict rather than
// queued.
type ConfirmationGate struct {
	port ConfirmationPort
	slot chan struct{}
}

func NewConfirmationGate(port ConfirmationPort) *ConfirmationGate {
	g := &ConfirmationGate{port: port, slot: make(chan struct{}, 1)}
	g.slot <- struct{}{}
	return g
}

// Ask presents the prompt. Returns false with a nil error when the answer is
// negative or dismissed; that is a declined outcome, not a failure.
func (g *ConfirmationGate) Ask(ctx context.Context, prompt ConfirmationPrompt) (bool, error) {
	if g == nil || g.port == nil {
		return false, utils.ConflictErrorf("operation %q requires confirmation", prompt.Action)
	}
	select {
	case <-g.slot:
	default:
		return false, utils.ConflictErrorf("another confirmation is already pending")
	}
	defer func() { g.slot <- struct{}{} }()

	ok, err := g.port.Confirm(ctx, prompt)
	if err != nil {
		// an errored or dismissed prompt counts as declined
		return false, nil
	}
	return ok, nil
}
