// Package store is the document store behind favorites and the request
// board: a per-user favorites document and a shared songRequests
// collection, read via point fetch or live subscription.
//
// Subscribers receive a full snapshot after every successful write (and
// one immediately on subscribe). There is no merge logic: the last
// snapshot pushed wins, which matches the consistency the managed store
// in the original deployment provided.
package store

import "time"

// FavoriteAlbum is the album subset stored in a user's favorites document.
type FavoriteAlbum struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Image  string `json:"image"`
}

// Participant identifies a user attached to a song request.
type Participant struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

// SongRequest is one document in the shared songRequests collection.
// RequestedBy is never empty while the document exists; removing the last
// participant deletes the document.
type SongRequest struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	ImageURL    string        `json:"imageUrl"`
	RequestedBy []Participant `json:"requestedByUsers"`
	Upvotes     []string      `json:"upvotes"`
	CreatedAt   time.Time     `json:"timestamp"`
}

// HasParticipant reports whether uid is among the requesters.
func (r *SongRequest) HasParticipant(uid string) bool {
	for _, p := range r.RequestedBy {
		if p.UID == uid {
			return true
		}
	}
	return false
}

// HasUpvote reports whether uid has upvoted the request.
func (r *SongRequest) HasUpvote(uid string) bool {
	for _, u := range r.Upvotes {
		if u == uid {
			return true
		}
	}
	return false
}

// Store is the document-store contract. Writes are whole-document
// replacements; array semantics (union, remove, dedup) belong to callers.
type Store interface {
	// Favorites returns the user's favorites document, empty when the
	// user has none yet.
	Favorites(uid string) ([]FavoriteAlbum, error)
	// SetFavorites replaces the user's favorites document.
	SetFavorites(uid string, favorites []FavoriteAlbum) error
	// SubscribeFavorites delivers the current favorites immediately and
	// again after every write to the user's document. The returned
	// function cancels the subscription.
	SubscribeFavorites(uid string, fn func([]FavoriteAlbum)) (cancel func())

	// Requests returns all song requests in arrival order.
	Requests() ([]SongRequest, error)
	InsertRequest(req SongRequest) error
	UpdateRequest(req SongRequest) error
	DeleteRequest(id string) error
	// SubscribeRequests delivers the full request list immediately and
	// after every collection write.
	SubscribeRequests(fn func([]SongRequest)) (cancel func())

	Close() error
}
