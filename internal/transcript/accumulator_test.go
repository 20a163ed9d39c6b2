package transcript

import (
	"testing"

	"guardian/internal/domain"
)

func TestAccumulator_ChunksThenFinalize(t *testing.T) {
	a := NewAccumulator()
	a.AppendUserTurn("Hello", false)
	id := a.BeginAssistantTurn()

	for _, delta := range []string{"Hi", ",", " there"} {
		if err := a.ApplyChunk(id, delta); err != nil {
			t.Fatalf("ApplyChunk(%q): %v", delta, err)
		}
	}
	if got := a.Text(id); got != "Hi, there" {
		t.Fatalf("accumulated text = %q", got)
	}

	// Authoritative final text wins over the chunk concatenation.
	if err := a.Finalize(id, "Hi there!"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(msgs))
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Text != "Hi there!" {
		t.Fatalf("assistant turn = %+v", msgs[1])
	}
}

func TestAccumulator_ChunkAfterFinalizeRejected(t *testing.T) {
	a := NewAccumulator()
	id := a.BeginAssistantTurn()
	if err := a.Finalize(id, "done"); err != nil {
		t.Fatal(err)
	}
	if err := a.ApplyChunk(id, "late"); err == nil {
		t.Fatal("expected chunk after finalize to be rejected")
	}
	if got := a.Text(id); got != "done" {
		t.Fatalf("finalized text mutated: %q", got)
	}
}

func TestAccumulator_OnlyInFlightTurnMutable(t *testing.T) {
	a := NewAccumulator()
	first := a.BeginAssistantTurn()
	if err := a.Finalize(first, "first"); err != nil {
		t.Fatal(err)
	}
	second := a.BeginAssistantTurn()

	if err := a.ApplyChunk(first, "x"); err == nil {
		t.Fatal("sealed turn must not accept chunks")
	}
	if err := a.ApplyChunk(second, "second"); err != nil {
		t.Fatalf("in-flight turn rejected chunk: %v", err)
	}
}

func TestAccumulator_Rollback(t *testing.T) {
	a := NewAccumulator()
	keep := a.AppendUserTurn("keep me", false)
	user := a.AppendUserTurn("failed send", true)
	assistant := a.BeginAssistantTurn()

	a.RollbackTurn(assistant)
	a.RollbackTurn(user)

	msgs := a.Messages()
	if len(msgs) != 1 || msgs[0].ID != keep {
		t.Fatalf("rollback left wrong transcript: %+v", msgs)
	}

	// Rolling back the in-flight turn clears the streaming mark.
	if err := a.ApplyChunk(assistant, "x"); err == nil {
		t.Fatal("rolled-back turn must not accept chunks")
	}
}

func TestAccumulator_RollbackUnknownIDIsNoop(t *testing.T) {
	a := NewAccumulator()
	a.AppendUserTurn("hello", false)
	a.RollbackTurn("no-such-id")
	if a.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", a.Len())
	}
}

func TestAccumulator_VoiceOriginTag(t *testing.T) {
	a := NewAccumulator()
	a.AppendUserTurn("spoken", true)
	msgs := a.Messages()
	if !msgs[0].VoiceOrigin {
		t.Fatal("voice origin tag lost")
	}
}

func TestAccumulator_OrderPreserved(t *testing.T) {
	a := NewAccumulator()
	a.AppendUserTurn("one", false)
	id := a.BeginAssistantTurn()
	a.Finalize(id, "two")
	a.AppendUserTurn("three", false)

	msgs := a.Messages()
	want := []string{"one", "two", "three"}
	for i, w := range want {
		if msgs[i].Text != w {
			t.Fatalf("turn %d = %q, want %q", i, msgs[i].Text, w)
		}
	}
}
