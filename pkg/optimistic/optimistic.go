// Package optimistic applies a state change locally and rolls it back when the
// durable commit fails.
package optimistic

// Apply snapshots *state with clone, runs mutate, then commit with the new
// state. If mutate or commit fails, *state is restored to the snapshot and the
// error returned. mutate may return ErrNoChange to skip the commit.
func Apply[S any](state *S, clone func(S) S, mutate func(*S) error, commit func(S) error) error {
	snapshot := clone(*state)
	if err := mutate(state); err != nil {
		*state = snapshot
		if err == ErrNoChange {
			return nil
		}
		return err
	}
	if err := commit(*state); err != nil {
		*state = snapshot
		return err
	}
	return nil
}

type noChange struct{}

func (noChange) Error() string { return "optimistic: no change" }

// ErrNoChange tells Apply the mutation was a no-op and nothing needs committing.
var ErrNoChange error = noChange{}
