package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	return &Cache{baseDir: t.TempDir(), expiry: DefaultExpiry}
}

func TestSaveAndLoadLastPlayed(t *testing.T) {
	c := testCache(t)

	snapshot := LastPlayed{
		AlbumIndex: 0,
		SongIndex:  1,
		Song:       catalog.Song{ID: "2", Title: "Perfect", Artist: "Ed Sheeran", Audio: "perfect.mp3"},
		IsPlaying:  true,
	}

	if err := c.SaveLastPlayed(snapshot); err != nil {
		t.Fatalf("SaveLastPlayed() error = %v", err)
	}

	loaded := c.LoadLastPlayed()
	if loaded == nil {
		t.Fatal("LoadLastPlayed() = nil, want snapshot")
	}

	if loaded.Song.Title != snapshot.Song.Title {
		t.Errorf("loaded.Song.Title = %q, want %q", loaded.Song.Title, snapshot.Song.Title)
	}
	if loaded.AlbumIndex != snapshot.AlbumIndex || loaded.SongIndex != snapshot.SongIndex {
		t.Errorf("loaded coordinate = (%d, %d), want (%d, %d)",
			loaded.AlbumIndex, loaded.SongIndex, snapshot.AlbumIndex, snapshot.SongIndex)
	}
	if !loaded.IsPlaying {
		t.Error("loaded.IsPlaying = false, want true")
	}
}

func TestSaveLastPlayedOverwrites(t *testing.T) {
	c := testCache(t)

	first := LastPlayed{Song: catalog.Song{ID: "1", Title: "Shape of You"}}
	second := LastPlayed{Song: catalog.Song{ID: "2", Title: "Perfect"}, SongIndex: 1}

	if err := c.SaveLastPlayed(first); err != nil {
		t.Fatalf("SaveLastPlayed(first) error = %v", err)
	}
	if err := c.SaveLastPlayed(second); err != nil {
		t.Fatalf("SaveLastPlayed(second) error = %v", err)
	}

	loaded := c.LoadLastPlayed()
	if loaded == nil {
		t.Fatal("LoadLastPlayed() = nil, want snapshot")
	}
	if loaded.Song.Title != "Perfect" {
		t.Errorf("loaded.Song.Title = %q, want the later snapshot", loaded.Song.Title)
	}
}

func TestLoadLastPlayedMissing(t *testing.T) {
	c := testCache(t)

	if got := c.LoadLastPlayed(); got != nil {
		t.Errorf("LoadLastPlayed() with no file = %v, want nil", got)
	}
}

func TestLoadLastPlayedCorrupt(t *testing.T) {
	c := testCache(t)

	path := filepath.Join(c.baseDir, LastPlayedFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := c.LoadLastPlayed(); got != nil {
		t.Errorf("LoadLastPlayed() with corrupt file = %v, want nil", got)
	}

	// Corrupt file should have been cleaned up.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt snapshot file should be removed after a failed load")
	}
}
