// Package catalog defines the albums and tracks known to the player.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

//go:embed data/catalog.json
var defaultCatalogJSON []byte

// ID accepts either a JSON string or number and normalizes to a string.
// Catalog files in the wild mix the two; every comparison in the player
// is done on the string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Song is a single playable track.
type Song struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
	Image     string `json:"image,omitempty"`
	Audio     string `json:"audio"`
	DateAdded string `json:"dateAdded,omitempty"`
}

// Album is a named song collection with cover artwork.
type Album struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Image      string `json:"image"`
	Cover      string `json:"cover,omitempty"`
	AboutCover string `json:"aboutCover,omitempty"`
	Songs      []Song `json:"songs"`
}

// Catalog is the static set of albums and standalone top picks,
// loaded once at startup and immutable afterwards.
type Catalog struct {
	Albums   []Album `json:"albums"`
	TopPicks []Song  `json:"topPicks"`
}

// Load reads a catalog from the given path, falling back to the embedded
// default catalog when path is empty or unreadable.
func Load(path string) *Catalog {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read catalog file, using built-in catalog")
		} else if c, err := parse(data); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to parse catalog file, using built-in catalog")
		} else {
			return c
		}
	}

	c, err := parse(defaultCatalogJSON)
	if err != nil {
		// The embedded catalog is part of the build; a parse failure is a packaging bug.
		log.Error().Err(err).Msg("Built-in catalog is invalid")
		return &Catalog{}
	}
	return c
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	c.normalize()
	return &c, nil
}

// normalize guarantees that Songs is never nil and that every id is a
// non-empty string. Songs with a missing id get a positional one, the way
// album views in the source data numbered their tracks.
func (c *Catalog) normalize() {
	for i := range c.Albums {
		album := &c.Albums[i]
		if album.Songs == nil {
			album.Songs = []Song{}
		}
		for j := range album.Songs {
			if album.Songs[j].ID == "" {
				album.Songs[j].ID = ID(strconv.Itoa(j + 1))
			}
		}
	}
	if c.TopPicks == nil {
		c.TopPicks = []Song{}
	}
}

// FindAlbum returns the album with the given id, or nil.
func (c *Catalog) FindAlbum(id ID) *Album {
	for i := range c.Albums {
		if c.Albums[i].ID == id {
			return &c.Albums[i]
		}
	}
	return nil
}

// TotalSongs counts the songs in every album, ignoring top picks.
func (c *Catalog) TotalSongs() int {
	total := 0
	for _, a := range c.Albums {
		total += len(a.Songs)
	}
	return total
}
