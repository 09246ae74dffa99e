package engine

import (
	"context"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/eventlog"
)

// request pairs one Command with the channel its caller is waiting on,
// exactly the way the teacher's Server paired a ClientMessage with the
// session that should see its reply (internal/server.go, internal/worker.go,
// now deleted — see DESIGN.md).
type request struct {
	cmd    Command
	result chan<- Result
}

// Result is what a Mailbox hands back for one submitted Command.
type Result struct {
	Events []eventlog.Event
	Err    error
}

const mailboxBufferSize = 256

// Mailbox is the single-threaded command queue spec.md §5 calls for: "if
// multi-threading is desired, wrap the engine in a single mailbox; do not
// parallelize matching." It adapts the teacher's tomb.v2-supervised
// WorkerPool — there, N workers pulled net.Conn tasks off a channel; here,
// exactly one goroutine pulls Commands off a channel and feeds them to
// Engine.Apply one at a time, preserving the teacher's
// tomb.WithContext/t.Go/t.Dying supervision shape while dropping the
// network transport it used to carry (spec.md §1 Non-goal).
type Mailbox struct {
	engine *Engine
	inbox  chan request
	t      *tomb.Tomb
}

// NewMailbox constructs a Mailbox around an existing Engine. The engine must
// not be driven any other way while the Mailbox is running — Submit is the
// only entry point, matching spec.md §5's "callers serialize access
// externally" by construction rather than by convention.
func NewMailbox(e *Engine) *Mailbox {
	return &Mailbox{
		engine: e,
		inbox:  make(chan request, mailboxBufferSize),
	}
}

// Run starts the mailbox's single consumer goroutine under tomb supervision
// and blocks until ctx is canceled or Stop is called, returning any error
// the consumer exited with.
func (m *Mailbox) Run(parent context.Context) error {
	t, ctx := tomb.WithContext(parent)
	m.t = t

	t.Go(func() error {
		log.Info().Msg("engine mailbox starting")
		for {
			select {
			case <-t.Dying():
				log.Info().Msg("engine mailbox stopping")
				return nil
			case req := <-m.inbox:
				events, err := m.engine.Apply(req.cmd)
				req.result <- Result{Events: events, Err: err}
			case <-ctx.Done():
				return nil
			}
		}
	})

	return t.Wait()
}

// Stop signals the consumer goroutine to exit and waits for it to finish.
func (m *Mailbox) Stop() error {
	m.t.Kill(nil)
	return m.t.Wait()
}

// Submit enqueues cmd and blocks until the single consumer goroutine has
// applied it, returning the events it produced (or the rejection it
// returned) exactly as a direct Engine.Apply call would. Safe to call
// concurrently from many goroutines; the mailbox is what serializes them
// into the one-command-at-a-time order spec.md §5 requires.
func (m *Mailbox) Submit(cmd Command) ([]eventlog.Event, error) {
	result := make(chan Result, 1)
	m.inbox <- request{cmd: cmd, result: result}
	r := <-result
	return r.Events, r.Err
}
