package wishsync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/livetemplate/newyear/internal/progress"
)

// Remote is the persistence API as seen by a session
type Remote interface {
	Fetch(ctx context.Context, name string) ([]string, error)
	Save(ctx context.Context, name, wish string) error
}

// Syncer moves wishes between a session's state and the remote store. All
// remote calls run in background goroutines; failures are logged and never
// change local state.
type Syncer struct {
	state   *progress.State
	remote  Remote
	timeout time.Duration

	// OnLoad, if set, runs after a background Pull merged new wishes.
	OnLoad func()

	wg sync.WaitGroup
}

// NewSyncer creates a syncer for one session. timeout bounds each remote call.
func NewSyncer(state *progress.State, remote Remote, timeout time.Duration) *Syncer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Syncer{state: state, remote: remote, timeout: timeout}
}

// Load fetches the wishes persisted for name and merges them into the state.
// On error the state is left untouched.
func (s *Syncer) Load(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fetched, err := s.remote.Fetch(ctx, name)
	if err != nil {
		return err
	}
	s.state.UpdateWishes(func(local []string) []string {
		return Merge(local, fetched)
	})
	return nil
}

// Pull runs Load in the background.
func (s *Syncer) Pull(name string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Load(context.Background(), name); err != nil {
			log.Printf("[WishSync] Failed to load wishes for %q: %v", name, err)
			return
		}
		if s.OnLoad != nil {
			s.OnLoad()
		}
	}()
}

// Push saves one wish in the background. It is attempted once and a failure
// does not remove the wish from local state.
func (s *Syncer) Push(name, wish string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.remote.Save(ctx, name, wish); err != nil {
			log.Printf("[WishSync] Failed to save wish for %q: %v", name, err)
		}
	}()
}

// Wait blocks until every background call started so far has finished.
func (s *Syncer) Wait() {
	s.wg.Wait()
}
