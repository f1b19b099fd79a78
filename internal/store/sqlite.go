package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a request document does not exist.
var ErrNotFound = errors.New("document not found")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	uid       TEXT PRIMARY KEY,
	favorites TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS song_requests (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	artist       TEXT NOT NULL,
	image_url    TEXT NOT NULL DEFAULT '',
	requested_by TEXT NOT NULL DEFAULT '[]',
	upvotes      TEXT NOT NULL DEFAULT '[]',
	created_at   INTEGER NOT NULL
);
`

// SQLiteStore persists the documents in a local SQLite file so multiple
// Groovebox processes on the machine share one board, and pushes in-process
// snapshots after each write.
type SQLiteStore struct {
	db *sqlx.DB

	mu           sync.Mutex
	nextSubID    int
	favoriteSubs map[int]favoriteSub
	requestSubs  map[int]func([]SongRequest)
}

type favoriteSub struct {
	uid string
	fn  func([]FavoriteAlbum)
}

// Open opens (and if needed creates) the store at path. ":memory:" gives
// an isolated in-memory store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	// A single writer keeps snapshot pushes ordered with their writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store schema: %w", err)
	}

	return &SQLiteStore{
		db:           db,
		favoriteSubs: make(map[int]favoriteSub),
		requestSubs:  make(map[int]func([]SongRequest)),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Favorites(uid string) ([]FavoriteAlbum, error) {
	var raw string
	err := s.db.Get(&raw, `SELECT favorites FROM users WHERE uid = ?`, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return []FavoriteAlbum{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites for %s: %w", uid, err)
	}

	var favorites []FavoriteAlbum
	if err := json.Unmarshal([]byte(raw), &favorites); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("Favorites document is malformed, treating as empty")
		return []FavoriteAlbum{}, nil
	}
	if favorites == nil {
		favorites = []FavoriteAlbum{}
	}
	return favorites, nil
}

func (s *SQLiteStore) SetFavorites(uid string, favorites []FavoriteAlbum) error {
	if favorites == nil {
		favorites = []FavoriteAlbum{}
	}
	data, err := json.Marshal(favorites)
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO users (uid, favorites) VALUES (?, ?)
		ON CONFLICT(uid) DO UPDATE SET favorites = excluded.favorites`,
		uid, string(data))
	if err != nil {
		return fmt.Errorf("failed to write favorites for %s: %w", uid, err)
	}

	s.notifyFavorites(uid, favorites)
	return nil
}

func (s *SQLiteStore) SubscribeFavorites(uid string, fn func([]FavoriteAlbum)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.favoriteSubs[id] = favoriteSub{uid: uid, fn: fn}
	s.mu.Unlock()

	// Initial snapshot, like a store listener's first delivery.
	if favorites, err := s.Favorites(uid); err == nil {
		fn(favorites)
	} else {
		log.Warn().Err(err).Str("uid", uid).Msg("Failed to deliver initial favorites snapshot")
	}

	return func() {
		s.mu.Lock()
		delete(s.favoriteSubs, id)
		s.mu.Unlock()
	}
}

func (s *SQLiteStore) notifyFavorites(uid string, favorites []FavoriteAlbum) {
	s.mu.Lock()
	fns := make([]func([]FavoriteAlbum), 0, len(s.favoriteSubs))
	for _, sub := range s.favoriteSubs {
		if sub.uid == uid {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(favorites)
	}
}

type requestRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Artist      string `db:"artist"`
	ImageURL    string `db:"image_url"`
	RequestedBy string `db:"requested_by"`
	Upvotes     string `db:"upvotes"`
	CreatedAt   int64  `db:"created_at"`
}

func (row requestRow) toRequest() SongRequest {
	req := SongRequest{
		ID:        row.ID,
		Title:     row.Title,
		Artist:    row.Artist,
		ImageURL:  row.ImageURL,
		CreatedAt: time.Unix(0, row.CreatedAt),
	}

	if err := json.Unmarshal([]byte(row.RequestedBy), &req.RequestedBy); err != nil {
		log.Warn().Err(err).Str("id", row.ID).Msg("Malformed requestedBy field")
	}
	if err := json.Unmarshal([]byte(row.Upvotes), &req.Upvotes); err != nil {
		log.Warn().Err(err).Str("id", row.ID).Msg("Malformed upvotes field")
	}

	// Missing remote fields are defaulted, never propagated as faults.
	if req.Title == "" {
		req.Title = "Unknown Title"
	}
	if req.Artist == "" {
		req.Artist = "Unknown Artist"
	}
	if req.RequestedBy == nil {
		req.RequestedBy = []Participant{}
	}
	if req.Upvotes == nil {
		req.Upvotes = []string{}
	}

	return req
}

// Requests returns the collection in arrival order (creation time, then id).
func (s *SQLiteStore) Requests() ([]SongRequest, error) {
	var rows []requestRow
	err := s.db.Select(&rows, `
		SELECT id, title, artist, image_url, requested_by, upvotes, created_at
		FROM song_requests ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read song requests: %w", err)
	}

	requests := make([]SongRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, row.toRequest())
	}
	return requests, nil
}

func (s *SQLiteStore) InsertRequest(req SongRequest) error {
	row, err := toRow(req)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO song_requests (id, title, artist, image_url, requested_by, upvotes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Title, row.Artist, row.ImageURL, row.RequestedBy, row.Upvotes, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert song request: %w", err)
	}

	s.notifyRequests()
	return nil
}

func (s *SQLiteStore) UpdateRequest(req SongRequest) error {
	row, err := toRow(req)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE song_requests
		SET title = ?, artist = ?, image_url = ?, requested_by = ?, upvotes = ?
		WHERE id = ?`,
		row.Title, row.Artist, row.ImageURL, row.RequestedBy, row.Upvotes, row.ID)
	if err != nil {
		return fmt.Errorf("failed to update song request %s: %w", req.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.notifyRequests()
	return nil
}

func (s *SQLiteStore) DeleteRequest(id string) error {
	if _, err := s.db.Exec(`DELETE FROM song_requests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete song request %s: %w", id, err)
	}

	s.notifyRequests()
	return nil
}

func toRow(req SongRequest) (requestRow, error) {
	requestedBy, err := json.Marshal(req.RequestedBy)
	if err != nil {
		return requestRow{}, fmt.Errorf("failed to marshal requestedBy: %w", err)
	}
	upvotes := req.Upvotes
	if upvotes == nil {
		upvotes = []string{}
	}
	upvotesData, err := json.Marshal(upvotes)
	if err != nil {
		return requestRow{}, fmt.Errorf("failed to marshal upvotes: %w", err)
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return requestRow{
		ID:          req.ID,
		Title:       req.Title,
		Artist:      req.Artist,
		ImageURL:    req.ImageURL,
		RequestedBy: string(requestedBy),
		Upvotes:     string(upvotesData),
		CreatedAt:   createdAt.UnixNano(),
	}, nil
}

func (s *SQLiteStore) SubscribeRequests(fn func([]SongRequest)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.requestSubs[id] = fn
	s.mu.Unlock()

	if requests, err := s.Requests(); err == nil {
		fn(requests)
	} else {
		log.Warn().Err(err).Msg("Failed to deliver initial requests snapshot")
	}

	return func() {
		s.mu.Lock()
		delete(s.requestSubs, id)
		s.mu.Unlock()
	}
}

func (s *SQLiteStore) notifyRequests() {
	requests, err := s.Requests()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read requests for snapshot push")
		return
	}

	s.mu.Lock()
	fns := make([]func([]SongRequest), 0, len(s.requestSubs))
	for _, fn := range s.requestSubs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(requests)
	}
}
