package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/rs/zerolog/log"
)

// LastPlayedFileName holds the single resume snapshot, overwritten on
// every change.
const LastPlayedFileName = "last_played.json"

// LastPlayed is the snapshot written whenever the current song or the play
// intent changes. Position is deliberately not recorded: a resumed session
// starts the song from zero, paused until the user acts.
type LastPlayed struct {
	AlbumIndex int          `json:"albumIndex"`
	SongIndex  int          `json:"songIndex"`
	Song       catalog.Song `json:"song"`
	IsPlaying  bool         `json:"isPlaying"`
}

// SaveLastPlayed overwrites the snapshot on disk.
func (c *Cache) SaveLastPlayed(snapshot LastPlayed) error {
	if err := c.ensureDir(c.baseDir); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal last-played snapshot: %w", err)
	}

	path := filepath.Join(c.baseDir, LastPlayedFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write last-played snapshot: %w", err)
	}

	return nil
}

// LoadLastPlayed returns the stored snapshot, or nil when none exists or
// the file cannot be parsed. A corrupt snapshot is discarded rather than
// surfaced; resuming is best effort.
func (c *Cache) LoadLastPlayed() *LastPlayed {
	path := filepath.Join(c.baseDir, LastPlayedFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var snapshot LastPlayed
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Debug().Err(err).Str("file", path).Msg("Discarding unreadable last-played snapshot")
		if err := os.Remove(path); err != nil {
			log.Debug().Err(err).Str("file", path).Msg("Failed to remove corrupt snapshot")
		}
		return nil
	}

	return &snapshot
}
