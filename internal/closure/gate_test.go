package closure

import "testing"

func TestGate_StripsMarkerAndTrims(t *testing.T) {
	g := NewGate()
	cleaned, notice := g.Inspect("Let's pause here. [PHASE_CLOSURE]")
	if cleaned != "Let's pause here." {
		t.Fatalf("cleaned = %q", cleaned)
	}
	if !notice {
		t.Fatal("expected notice on first marker")
	}
}

func TestGate_NoticeOncePerSession(t *testing.T) {
	g := NewGate()
	if _, notice := g.Inspect("first [PHASE_CLOSURE]"); !notice {
		t.Fatal("first marker should show the notice")
	}
	cleaned, notice := g.Inspect("again [PHASE_CLOSURE]")
	if notice {
		t.Fatal("notice must not repeat within a session")
	}
	if cleaned != "again" {
		t.Fatalf("marker must still be stripped, got %q", cleaned)
	}
}

func TestGate_NoMarker(t *testing.T) {
	g := NewGate()
	cleaned, notice := g.Inspect("plain reply")
	if cleaned != "plain reply" || notice {
		t.Fatalf("got %q, %v", cleaned, notice)
	}
	if g.Shown() {
		t.Fatal("gate must not arm without a marker")
	}
}

func TestGate_MultipleOccurrencesAllStripped(t *testing.T) {
	g := NewGate()
	cleaned, _ := g.Inspect("[PHASE_CLOSURE]a[PHASE_CLOSURE]b[PHASE_CLOSURE]")
	if cleaned != "ab" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}

func TestGate_CaseSensitive(t *testing.T) {
	g := NewGate()
	cleaned, notice := g.Inspect("text [phase_closure]")
	if notice {
		t.Fatal("lowercase token is not the marker")
	}
	if cleaned != "text [phase_closure]" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}
