package memory

import (
	"context"
	"fmt"
	"testing"
)

func TestAppendEmptyIsNoOp(t *testing.T) {
	s := NewInMemoryStore(10)
	ctx := context.Background()

	if err := s.Append(ctx, 42, RoleUser, "   \n\t"); err != nil {
		t.Fatalf("Append error = %v", err)
	}
	turns, err := s.Recent(ctx, 42, 10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("len(turns) = %d, want 0", len(turns))
	}
}

func TestRetentionEvictsOldest(t *testing.T) {
	const n = 10
	s := NewInMemoryStore(n)
	ctx := context.Background()

	for i := 0; i < n+5; i++ {
		if err := s.Append(ctx, 42, RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("Append #%d error = %v", i, err)
		}
	}

	turns, err := s.Recent(ctx, 42, n+5)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != n {
		t.Fatalf("len(turns) = %d, want %d", len(turns), n)
	}
	if turns[0].Text != "msg-5" {
		t.Fatalf("oldest retained = %q, want %q", turns[0].Text, "msg-5")
	}
	if turns[n-1].Text != fmt.Sprintf("msg-%d", n+4) {
		t.Fatalf("newest retained = %q, want %q", turns[n-1].Text, fmt.Sprintf("msg-%d", n+4))
	}
}

func TestRecentChronologicalWithLimit(t *testing.T) {
	s := NewInMemoryStore(50)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if err := s.Append(ctx, 42, RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("Append error = %v", err)
		}
	}

	turns, err := s.Recent(ctx, 42, 3)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("len(turns) = %d, want 3", len(turns))
	}
	for i, want := range []string{"msg-3", "msg-4", "msg-5"} {
		if turns[i].Text != want {
			t.Fatalf("turns[%d].Text = %q, want %q", i, turns[i].Text, want)
		}
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Seq <= turns[i-1].Seq {
			t.Fatalf("turns not in creation order: %d then %d", turns[i-1].Seq, turns[i].Seq)
		}
	}
}

func TestClear(t *testing.T) {
	s := NewInMemoryStore(10)
	ctx := context.Background()

	if err := s.Append(ctx, 42, RoleUser, "hello"); err != nil {
		t.Fatalf("Append error = %v", err)
	}
	if err := s.Append(ctx, 7, RoleUser, "other user"); err != nil {
		t.Fatalf("Append error = %v", err)
	}
	if err := s.Clear(ctx, 42); err != nil {
		t.Fatalf("Clear error = %v", err)
	}

	turns, err := s.Recent(ctx, 42, 10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("len(turns) after clear = %d, want 0", len(turns))
	}

	other, err := s.Recent(ctx, 7, 10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("clear touched another user's turns: %d", len(other))
	}
}
