package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grooveboxdev/groovebox-cli/internal/api"
	"github.com/grooveboxdev/groovebox-cli/internal/identity"
	"github.com/grooveboxdev/groovebox-cli/internal/store"
	"github.com/rs/zerolog/log"
)

// Searcher is the slice of the catalog search client the board needs.
type Searcher interface {
	SearchTracks(query string) ([]api.Track, error)
}

// RequestBoard manages the shared song-request collection: search for a
// candidate, submit or join a request, upvote, and leave.
type RequestBoard struct {
	searcher Searcher
	store    store.Store
	provider identity.Provider
	notices  *Notices

	mu        sync.Mutex
	requests  []store.SongRequest
	results   []api.Track
	searchSeq int

	cancelSub func()

	onRequests func([]store.SongRequest)
	onResults  func([]api.Track)
}

// NewRequestBoard creates the board and opens the live subscription to the
// shared collection. Viewing does not require a session; mutations do.
func NewRequestBoard(searcher Searcher, st store.Store, provider identity.Provider, notices *Notices) *RequestBoard {
	b := &RequestBoard{
		searcher: searcher,
		store:    st,
		provider: provider,
		notices:  notices,
	}

	b.cancelSub = st.SubscribeRequests(func(requests []store.SongRequest) {
		b.mu.Lock()
		b.requests = requests
		fn := b.onRequests
		b.mu.Unlock()

		if fn != nil {
			fn(requests)
		}
	})

	return b
}

// OnRequests registers a callback for request-list pushes, replacing any
// previous one.
func (b *RequestBoard) OnRequests(fn func([]store.SongRequest)) {
	b.mu.Lock()
	b.onRequests = fn
	b.mu.Unlock()
}

// OnResults registers a callback for search result updates.
func (b *RequestBoard) OnResults(fn func([]api.Track)) {
	b.mu.Lock()
	b.onResults = fn
	b.mu.Unlock()
}

// Requests returns a copy of the mirrored request list in arrival order.
func (b *RequestBoard) Requests() []store.SongRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]store.SongRequest, len(b.requests))
	copy(result, b.requests)
	return result
}

// Results returns a copy of the current search results.
func (b *RequestBoard) Results() []api.Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]api.Track, len(b.results))
	copy(result, b.results)
	return result
}

// Search queries the catalog API. Responses that resolve after a newer
// search has been issued are discarded, so the visible results always
// belong to the latest query. An empty query is a no-op that keeps the
// current results. Failures log and leave an empty result set.
func (b *RequestBoard) Search(query string) []api.Track {
	if strings.TrimSpace(query) == "" {
		return b.Results()
	}

	b.mu.Lock()
	b.searchSeq++
	seq := b.searchSeq
	b.mu.Unlock()

	tracks, err := b.searcher.SearchTracks(query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Track search failed")
		tracks = nil
	}

	b.mu.Lock()
	if seq != b.searchSeq {
		// A newer search was issued while this one was in flight.
		b.mu.Unlock()
		return nil
	}
	if tracks == nil {
		tracks = []api.Track{}
	}
	b.results = tracks
	fn := b.onResults
	b.mu.Unlock()

	if fn != nil {
		fn(tracks)
	}
	return tracks
}

func (b *RequestBoard) clearSearch() {
	b.mu.Lock()
	b.results = []api.Track{}
	b.searchSeq++
	fn := b.onResults
	b.mu.Unlock()

	if fn != nil {
		fn([]api.Track{})
	}
}

// Submit requests a track. A request is identified by its exact
// (title, artist) pair: submitting an existing pair joins the request
// unless the user is already a participant.
func (b *RequestBoard) Submit(track api.Track) error {
	user, ok := b.provider.Current()
	if !ok {
		b.notices.Show("Please sign in first")
		return ErrNotSignedIn
	}

	title := track.Name
	if title == "" {
		title = "Unknown Title"
	}
	artist := track.PrimaryArtist()

	existing, err := b.findByTitleArtist(title, artist)
	if err != nil {
		b.notices.Show("Could not submit your request")
		return err
	}

	if existing != nil {
		if existing.HasParticipant(user.UID) {
			b.notices.Show("You already requested this song")
			b.clearSearch()
			return ErrAlreadyRequested
		}

		existing.RequestedBy = append(existing.RequestedBy, participant(user))
		if err := b.store.UpdateRequest(*existing); err != nil {
			log.Error().Err(err).Str("id", existing.ID).Msg("Failed to join request")
			b.notices.Show("Could not submit your request")
			return fmt.Errorf("failed to join request: %w", err)
		}
		b.notices.Show("Joined an existing request")
		b.clearSearch()
		return nil
	}

	req := store.SongRequest{
		ID:          uuid.NewString(),
		Title:       title,
		Artist:      artist,
		ImageURL:    track.CoverURL(),
		RequestedBy: []store.Participant{participant(user)},
		Upvotes:     []string{},
		CreatedAt:   time.Now(),
	}

	if err := b.store.InsertRequest(req); err != nil {
		log.Error().Err(err).Str("title", title).Msg("Failed to create request")
		b.notices.Show("Could not submit your request")
		return fmt.Errorf("failed to create request: %w", err)
	}

	b.notices.Show("Song request added")
	b.clearSearch()
	return nil
}

// ToggleUpvote flips the user's membership in the request's upvote set.
func (b *RequestBoard) ToggleUpvote(requestID string) error {
	user, ok := b.provider.Current()
	if !ok {
		b.notices.Show("Please sign in first")
		return ErrNotSignedIn
	}

	req, err := b.findByID(requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return store.ErrNotFound
	}

	if req.HasUpvote(user.UID) {
		kept := make([]string, 0, len(req.Upvotes))
		for _, uid := range req.Upvotes {
			if uid != user.UID {
				kept = append(kept, uid)
			}
		}
		req.Upvotes = kept
	} else {
		req.Upvotes = append(req.Upvotes, user.UID)
	}

	if err := b.store.UpdateRequest(*req); err != nil {
		log.Error().Err(err).Str("id", requestID).Msg("Failed to toggle upvote")
		return fmt.Errorf("failed to toggle upvote: %w", err)
	}
	return nil
}

// Leave removes the user from a request's participants. The document is
// deleted when the last participant leaves. Not being a participant is a
// benign no-op.
func (b *RequestBoard) Leave(requestID string) error {
	user, ok := b.provider.Current()
	if !ok {
		b.notices.Show("Please sign in first")
		return ErrNotSignedIn
	}

	req, err := b.findByID(requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return store.ErrNotFound
	}
	if !req.HasParticipant(user.UID) {
		return nil
	}

	kept := make([]store.Participant, 0, len(req.RequestedBy))
	for _, p := range req.RequestedBy {
		if p.UID != user.UID {
			kept = append(kept, p)
		}
	}

	if len(kept) == 0 {
		if err := b.store.DeleteRequest(req.ID); err != nil {
			log.Error().Err(err).Str("id", requestID).Msg("Failed to delete request")
			return fmt.Errorf("failed to delete request: %w", err)
		}
		b.notices.Show("Request removed")
		return nil
	}

	req.RequestedBy = kept
	if err := b.store.UpdateRequest(*req); err != nil {
		log.Error().Err(err).Str("id", requestID).Msg("Failed to leave request")
		return fmt.Errorf("failed to leave request: %w", err)
	}
	b.notices.Show("Left the request")
	return nil
}

func (b *RequestBoard) findByTitleArtist(title, artist string) (*store.SongRequest, error) {
	requests, err := b.store.Requests()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch requests")
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}
	for i := range requests {
		if requests[i].Title == title && requests[i].Artist == artist {
			return &requests[i], nil
		}
	}
	return nil, nil
}

func (b *RequestBoard) findByID(id string) (*store.SongRequest, error) {
	requests, err := b.store.Requests()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch requests")
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}
	for i := range requests {
		if requests[i].ID == id {
			return &requests[i], nil
		}
	}
	return nil, nil
}

func participant(id identity.Identity) store.Participant {
	return store.Participant{UID: id.UID, Name: id.DisplayName, PhotoURL: id.PhotoURL}
}

// Close tears down the collection subscription.
func (b *RequestBoard) Close() {
	b.mu.Lock()
	if b.cancelSub != nil {
		b.cancelSub()
		b.cancelSub = nil
	}
	b.mu.Unlock()
}
