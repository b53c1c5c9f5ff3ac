package league

import (
	"math"
	"testing"
)

func TestPayoffTable_WinRate(t *testing.T) {
	t.Parallel()
	p := NewPayoffTable()

	if got := p.WinRate("a", "b"); got != 0.5 {
		t.Errorf("unplayed pairing win rate = %v, want 0.5", got)
	}

	p.AddOutcome("a", "b", Win)
	p.AddOutcome("a", "b", Win)
	p.AddOutcome("a", "b", Loss)
	p.AddOutcome("a", "b", Draw)

	// (2 wins + 0.5 draw) / 4 games
	want := 2.5 / 4.0
	if got := p.WinRate("a", "b"); math.Abs(got-want) > 1e-9 {
		t.Errorf("win rate = %v, want %v", got, want)
	}
	if got := p.Games("a", "b"); got != 4 {
		t.Errorf("games = %d, want 4", got)
	}
}

func TestPayoffTable_OrderedPairings(t *testing.T) {
	t.Parallel()
	p := NewPayoffTable()

	p.AddOutcome("a", "b", Win)

	// The reverse pairing is a separate record.
	if got := p.Games("b", "a"); got != 0 {
		t.Errorf("reverse pairing games = %d, want 0", got)
	}
	if got := p.WinRate("b", "a"); got != 0.5 {
		t.Errorf("reverse pairing win rate = %v, want 0.5", got)
	}
}

func TestPayoffTable_Snapshot(t *testing.T) {
	t.Parallel()
	p := NewPayoffTable()

	p.AddOutcome("b", "c", Loss)
	p.AddOutcome("a", "c", Win)
	p.AddOutcome("a", "b", Draw)

	entries := p.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(entries))
	}

	// Sorted by (home, away)
	if entries[0].Home != "a" || entries[0].Away != "b" {
		t.Errorf("entry 0 = %s vs %s, want a vs b", entries[0].Home, entries[0].Away)
	}
	if entries[1].Home != "a" || entries[1].Away != "c" {
		t.Errorf("entry 1 = %s vs %s, want a vs c", entries[1].Home, entries[1].Away)
	}
	if entries[2].Home != "b" || entries[2].Away != "c" {
		t.Errorf("entry 2 = %s vs %s, want b vs c", entries[2].Home, entries[2].Away)
	}

	if entries[0].Draws != 1 || entries[0].WinRate != 0.5 {
		t.Errorf("a vs b entry = %+v, want 1 draw, win rate 0.5", entries[0])
	}
	if entries[2].Losses != 1 || entries[2].WinRate != 0 {
		t.Errorf("b vs c entry = %+v, want 1 loss, win rate 0", entries[2])
	}
}
