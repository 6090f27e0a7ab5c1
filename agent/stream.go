package agent

import "context"

// Yield hands one thought to the consumer. It blocks until the thought is
// received and returns false once ctx is done.
type Yield func(thought string) bool

// Stream runs produce on its own goroutine and exposes its yields as the
// channel pair returned by core.Agent.Emit. The thought channel is
// unbuffered, so produce only continues after the consumer took the previous
// thought. Both channels are closed when produce returns; a non-nil error is
// delivered on the error channel first.
func Stream(ctx context.Context, produce func(ctx context.Context, yield Yield) error) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		yield := func(thought string) bool {
			select {
			case out <- thought:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := produce(ctx, yield); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// Collect drains an Emit stream and returns every thought plus the stream error.
func Collect(out <-chan string, errCh <-chan error) ([]string, error) {
	var thoughts []string
	for t := range out {
		thoughts = append(thoughts, t)
	}
	return thoughts, <-errCh
}
