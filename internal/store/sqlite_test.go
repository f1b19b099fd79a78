package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "groovebox.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFavoritesEmptyForNewUser(t *testing.T) {
	s := openTestStore(t)

	favorites, err := s.Favorites("uid-1")
	if err != nil {
		t.Fatalf("Favorites() error = %v", err)
	}
	if favorites == nil {
		t.Fatal("Favorites() = nil, want empty slice")
	}
	if len(favorites) != 0 {
		t.Errorf("Favorites() for new user has %d entries, want 0", len(favorites))
	}
}

func TestSetAndGetFavorites(t *testing.T) {
	s := openTestStore(t)

	want := []FavoriteAlbum{
		{ID: "1", Name: "Best of Sheeran", Artist: "Ed Sheeran", Image: "cover.jpg"},
		{ID: "2", Name: "After Hours", Artist: "The Weeknd"},
	}

	if err := s.SetFavorites("uid-1", want); err != nil {
		t.Fatalf("SetFavorites() error = %v", err)
	}

	got, err := s.Favorites("uid-1")
	if err != nil {
		t.Fatalf("Favorites() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Favorites() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("favorites[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSetFavoritesIsolatedPerUser(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetFavorites("uid-1", []FavoriteAlbum{{ID: "1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFavorites("uid-2", []FavoriteAlbum{{ID: "2"}, {ID: "3"}}); err != nil {
		t.Fatal(err)
	}

	got1, _ := s.Favorites("uid-1")
	got2, _ := s.Favorites("uid-2")
	if len(got1) != 1 || len(got2) != 2 {
		t.Errorf("per-user documents leaked: uid-1 has %d, uid-2 has %d", len(got1), len(got2))
	}
}

func TestSubscribeFavoritesPushesSnapshots(t *testing.T) {
	s := openTestStore(t)

	var snapshots [][]FavoriteAlbum
	cancel := s.SubscribeFavorites("uid-1", func(favorites []FavoriteAlbum) {
		snapshots = append(snapshots, favorites)
	})
	defer cancel()

	if len(snapshots) != 1 {
		t.Fatalf("expected an initial snapshot, got %d deliveries", len(snapshots))
	}

	if err := s.SetFavorites("uid-1", []FavoriteAlbum{{ID: "1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFavorites("uid-2", []FavoriteAlbum{{ID: "9"}}); err != nil {
		t.Fatal(err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("got %d deliveries, want 2 (initial + own write, not other users)", len(snapshots))
	}
	if len(snapshots[1]) != 1 || snapshots[1][0].ID != "1" {
		t.Errorf("second snapshot = %+v, want the written list", snapshots[1])
	}
}

func TestSubscribeFavoritesCancel(t *testing.T) {
	s := openTestStore(t)

	deliveries := 0
	cancel := s.SubscribeFavorites("uid-1", func([]FavoriteAlbum) { deliveries++ })
	cancel()

	if err := s.SetFavorites("uid-1", []FavoriteAlbum{{ID: "1"}}); err != nil {
		t.Fatal(err)
	}

	if deliveries != 1 {
		t.Errorf("cancelled subscription received %d deliveries, want only the initial 1", deliveries)
	}
}

func TestInsertAndListRequests(t *testing.T) {
	s := openTestStore(t)

	base := time.Now()
	first := SongRequest{
		ID: "r1", Title: "Perfect", Artist: "Ed Sheeran", ImageURL: "img1",
		RequestedBy: []Participant{{UID: "u1", Name: "One"}},
		CreatedAt:   base,
	}
	second := SongRequest{
		ID: "r2", Title: "Habitual", Artist: "Justin Bieber",
		RequestedBy: []Participant{{UID: "u2", Name: "Two"}},
		Upvotes:     []string{"u1"},
		CreatedAt:   base.Add(time.Second),
	}

	if err := s.InsertRequest(second); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertRequest(first); err != nil {
		t.Fatal(err)
	}

	requests, err := s.Requests()
	if err != nil {
		t.Fatalf("Requests() error = %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("Requests() returned %d, want 2", len(requests))
	}
	// Arrival order: creation time, not insert call order.
	if requests[0].ID != "r1" || requests[1].ID != "r2" {
		t.Errorf("order = [%s, %s], want [r1, r2]", requests[0].ID, requests[1].ID)
	}
	if !requests[1].HasUpvote("u1") {
		t.Error("upvotes were not persisted")
	}
	if !requests[0].HasParticipant("u1") {
		t.Error("participants were not persisted")
	}
}

func TestUpdateRequest(t *testing.T) {
	s := openTestStore(t)

	req := SongRequest{
		ID: "r1", Title: "Perfect", Artist: "Ed Sheeran",
		RequestedBy: []Participant{{UID: "u1"}},
	}
	if err := s.InsertRequest(req); err != nil {
		t.Fatal(err)
	}

	req.Upvotes = []string{"u2"}
	req.RequestedBy = append(req.RequestedBy, Participant{UID: "u3"})
	if err := s.UpdateRequest(req); err != nil {
		t.Fatalf("UpdateRequest() error = %v", err)
	}

	requests, _ := s.Requests()
	if len(requests) != 1 {
		t.Fatalf("Requests() returned %d, want 1", len(requests))
	}
	if !requests[0].HasUpvote("u2") || !requests[0].HasParticipant("u3") {
		t.Errorf("update not persisted: %+v", requests[0])
	}
}

func TestUpdateMissingRequest(t *testing.T) {
	s := openTestStore(t)

	err := s.UpdateRequest(SongRequest{ID: "ghost", RequestedBy: []Participant{{UID: "u1"}}})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRequest(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRequest(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertRequest(SongRequest{ID: "r1", Title: "T", Artist: "A", RequestedBy: []Participant{{UID: "u1"}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRequest("r1"); err != nil {
		t.Fatalf("DeleteRequest() error = %v", err)
	}

	requests, _ := s.Requests()
	if len(requests) != 0 {
		t.Errorf("Requests() after delete returned %d, want 0", len(requests))
	}

	// Deleting an absent document is benign.
	if err := s.DeleteRequest("r1"); err != nil {
		t.Errorf("DeleteRequest(absent) error = %v, want nil", err)
	}
}

func TestRequestFieldDefaults(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertRequest(SongRequest{ID: "r1", RequestedBy: []Participant{{UID: "u1"}}}); err != nil {
		t.Fatal(err)
	}

	requests, _ := s.Requests()
	if len(requests) != 1 {
		t.Fatal("request was not stored")
	}
	if requests[0].Title != "Unknown Title" {
		t.Errorf("Title = %q, want %q", requests[0].Title, "Unknown Title")
	}
	if requests[0].Artist != "Unknown Artist" {
		t.Errorf("Artist = %q, want %q", requests[0].Artist, "Unknown Artist")
	}
	if requests[0].Upvotes == nil {
		t.Error("Upvotes = nil, want empty slice")
	}
}

func TestSubscribeRequestsPushesOnEveryWrite(t *testing.T) {
	s := openTestStore(t)

	var deliveries [][]SongRequest
	cancel := s.SubscribeRequests(func(requests []SongRequest) {
		deliveries = append(deliveries, requests)
	})
	defer cancel()

	req := SongRequest{ID: "r1", Title: "T", Artist: "A", RequestedBy: []Participant{{UID: "u1"}}}
	if err := s.InsertRequest(req); err != nil {
		t.Fatal(err)
	}
	req.Upvotes = []string{"u2"}
	if err := s.UpdateRequest(req); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRequest("r1"); err != nil {
		t.Fatal(err)
	}

	// initial + insert + update + delete
	if len(deliveries) != 4 {
		t.Fatalf("got %d deliveries, want 4", len(deliveries))
	}
	if len(deliveries[3]) != 0 {
		t.Errorf("final snapshot has %d requests, want 0", len(deliveries[3]))
	}
}

func TestSharedFileVisibleAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s1.Close()

	if err := s1.SetFavorites("uid-1", []FavoriteAlbum{{ID: "1"}}); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	favorites, err := s2.Favorites("uid-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(favorites) != 1 {
		t.Errorf("second store sees %d favorites, want 1", len(favorites))
	}
}
