package service

import (
	"fmt"
	"sync"

	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/identity"
	"github.com/grooveboxdev/groovebox-cli/internal/store"
	"github.com/rs/zerolog/log"
)

// Favorites mirrors the signed-in user's favorite albums between local
// state and the per-user store document. The store is the truth: every
// subscription push overwrites the mirror unconditionally.
type Favorites struct {
	store    store.Store
	provider identity.Provider
	notices  *Notices

	mu        sync.RWMutex
	albums    []store.FavoriteAlbum
	cancelSub func()
	onChange  func([]store.FavoriteAlbum)
}

// NewFavorites wires the synchronizer to the provider's session changes.
func NewFavorites(st store.Store, provider identity.Provider, notices *Notices) *Favorites {
	f := &Favorites{
		store:    st,
		provider: provider,
		notices:  notices,
	}
	return f
}

// OnChange registers a callback invoked with the mirrored list after every
// update, replacing any previous callback.
func (f *Favorites) OnChange(fn func([]store.FavoriteAlbum)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// HandleSession establishes the live mirror on sign-in and tears it down
// on sign-out. At most one subscription is active; re-subscribing replaces
// the old one.
func (f *Favorites) HandleSession(id identity.Identity, signedIn bool) {
	f.mu.Lock()
	if f.cancelSub != nil {
		f.cancelSub()
		f.cancelSub = nil
	}
	f.mu.Unlock()

	if !signedIn {
		f.setAlbums(nil)
		return
	}

	cancel := f.store.SubscribeFavorites(id.UID, func(favorites []store.FavoriteAlbum) {
		f.setAlbums(favorites)
	})

	f.mu.Lock()
	f.cancelSub = cancel
	f.mu.Unlock()
}

func (f *Favorites) setAlbums(albums []store.FavoriteAlbum) {
	if albums == nil {
		albums = []store.FavoriteAlbum{}
	}
	f.mu.Lock()
	f.albums = albums
	fn := f.onChange
	f.mu.Unlock()

	if fn != nil {
		fn(albums)
	}
}

// List returns a copy of the mirrored favorites.
func (f *Favorites) List() []store.FavoriteAlbum {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]store.FavoriteAlbum, len(f.albums))
	copy(result, f.albums)
	return result
}

// IsFavorite checks the mirror for the album id.
func (f *Favorites) IsFavorite(id catalog.ID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.albums {
		if a.ID == string(id) {
			return true
		}
	}
	return false
}

// Add puts the album in the user's library. The authoritative list is
// re-fetched before the membership check so a stale mirror cannot cause
// a duplicate.
func (f *Favorites) Add(album catalog.Album) error {
	user, ok := f.provider.Current()
	if !ok {
		f.notices.Show("Please sign in first")
		return ErrNotSignedIn
	}

	current, err := f.store.Favorites(user.UID)
	if err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("Failed to fetch favorites")
		f.notices.Show("Could not update your library")
		return fmt.Errorf("failed to fetch favorites: %w", err)
	}

	for _, fav := range current {
		if fav.ID == string(album.ID) {
			f.notices.Show("Album already in your library")
			return ErrAlreadyFavorite
		}
	}

	updated := append(current, store.FavoriteAlbum{
		ID:     string(album.ID),
		Name:   album.Name,
		Artist: album.Artist,
		Image:  album.Image,
	})

	if err := f.store.SetFavorites(user.UID, updated); err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("Failed to add album")
		f.notices.Show("Could not update your library")
		return fmt.Errorf("failed to add album: %w", err)
	}

	f.setAlbums(updated)
	f.notices.Show("Added to your library")
	return nil
}

// Remove takes the album out of the user's library. An absent album is a
// benign no-op.
func (f *Favorites) Remove(album catalog.Album) error {
	user, ok := f.provider.Current()
	if !ok {
		f.notices.Show("Please sign in first")
		return ErrNotSignedIn
	}

	current, err := f.store.Favorites(user.UID)
	if err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("Failed to fetch favorites")
		f.notices.Show("Could not update your library")
		return fmt.Errorf("failed to fetch favorites: %w", err)
	}

	updated := make([]store.FavoriteAlbum, 0, len(current))
	for _, fav := range current {
		if fav.ID != string(album.ID) {
			updated = append(updated, fav)
		}
	}

	if err := f.store.SetFavorites(user.UID, updated); err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("Failed to remove album")
		f.notices.Show("Could not update your library")
		return fmt.Errorf("failed to remove album: %w", err)
	}

	f.setAlbums(updated)
	f.notices.Show("Removed Album Successfully")
	return nil
}

// Close tears down any live subscription.
func (f *Favorites) Close() {
	f.mu.Lock()
	if f.cancelSub != nil {
		f.cancelSub()
		f.cancelSub = nil
	}
	f.mu.Unlock()
}
