// Package service holds the synchronization logic between local state,
// the signed-in identity, and the document store: the favorites library
// and the shared song-request board.
package service

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNotSignedIn is returned by mutating operations without a session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrAlreadyFavorite is returned when an album is already in the library.
	ErrAlreadyFavorite = errors.New("album already in library")
	// ErrAlreadyRequested is returned when the user already requested a song.
	ErrAlreadyRequested = errors.New("song already requested")
)

// NoticeDuration is how long a transient notice stays visible.
const NoticeDuration = 3 * time.Second

// Notices shows one transient message at a time. A new message replaces
// the current one and restarts the expiry clock.
type Notices struct {
	mu       sync.Mutex
	current  string
	seq      int
	onChange func(string)
}

// NewNotices creates a notice board. onChange receives every message and
// an empty string when the message expires; it may be nil.
func NewNotices(onChange func(string)) *Notices {
	return &Notices{onChange: onChange}
}

// OnChange registers the render callback. It replaces any previous one.
func (n *Notices) OnChange(fn func(string)) {
	n.mu.Lock()
	n.onChange = fn
	n.mu.Unlock()
}

// Show displays message for NoticeDuration.
func (n *Notices) Show(message string) {
	n.mu.Lock()
	n.current = message
	n.seq++
	seq := n.seq
	fn := n.onChange
	n.mu.Unlock()

	log.Debug().Str("notice", message).Msg("Showing notice")
	if fn != nil {
		fn(message)
	}

	time.AfterFunc(NoticeDuration, func() {
		n.mu.Lock()
		// A newer message owns the board now.
		if n.seq != seq {
			n.mu.Unlock()
			return
		}
		n.current = ""
		fn := n.onChange
		n.mu.Unlock()

		if fn != nil {
			fn("")
		}
	})
}

// Current returns the visible message, empty when none.
func (n *Notices) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
