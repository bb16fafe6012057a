package optimistic

import (
	"errors"
	"slices"
	"testing"
)

func cloneInts(s []int) []int { return slices.Clone(s) }

func TestApplyCommits(t *testing.T) {
	state := []int{1, 2}
	var committed []int
	err := Apply(&state, cloneInts, func(s *[]int) error {
		*s = append(*s, 3)
		return nil
	}, func(s []int) error {
		committed = slices.Clone(s)
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !slices.Equal(state, []int{1, 2, 3}) || !slices.Equal(committed, state) {
		t.Fatalf("unexpected state %v committed %v", state, committed)
	}
}

func TestApplyRollsBackOnCommitFailure(t *testing.T) {
	state := []int{1, 2}
	boom := errors.New("storage unavailable")
	err := Apply(&state, cloneInts, func(s *[]int) error {
		(*s)[0] = 99
		*s = append(*s, 3)
		return nil
	}, func([]int) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if !slices.Equal(state, []int{1, 2}) {
		t.Fatalf("state not restored: %v", state)
	}
}

func TestApplyRollsBackOnMutateFailure(t *testing.T) {
	state := []int{1}
	commits := 0
	err := Apply(&state, cloneInts, func(s *[]int) error {
		*s = nil
		return errors.New("rejected")
	}, func([]int) error { commits++; return nil })
	if err == nil || commits != 0 {
		t.Fatalf("expected rejection without commit, err=%v commits=%d", err, commits)
	}
	if !slices.Equal(state, []int{1}) {
		t.Fatalf("state not restored: %v", state)
	}
}

func TestApplyNoChangeSkipsCommit(t *testing.T) {
	state := []int{1}
	commits := 0
	err := Apply(&state, cloneInts, func(*[]int) error { return ErrNoChange }, func([]int) error { commits++; return nil })
	if err != nil || commits != 0 {
		t.Fatalf("expected silent no-op, err=%v commits=%d", err, commits)
	}
}
