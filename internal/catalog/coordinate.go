package catalog

// Coordinate addresses a song as an (album, song) index pair in the
// flattened catalog walk order.
type Coordinate struct {
	Album int
	Song  int
}

// Valid reports whether the coordinate points at an existing song.
func (c *Catalog) Valid(at Coordinate) bool {
	if at.Album < 0 || at.Album >= len(c.Albums) {
		return false
	}
	return at.Song >= 0 && at.Song < len(c.Albums[at.Album].Songs)
}

// SongAt returns the song at the given coordinate, or nil if out of range.
func (c *Catalog) SongAt(at Coordinate) *Song {
	if !c.Valid(at) {
		return nil
	}
	return &c.Albums[at.Album].Songs[at.Song]
}

// Locate finds the coordinate of a song by id within the given album.
// Returns false if the album or song is unknown.
func (c *Catalog) Locate(albumID, songID ID) (Coordinate, bool) {
	for i := range c.Albums {
		if c.Albums[i].ID != albumID {
			continue
		}
		for j := range c.Albums[i].Songs {
			if c.Albums[i].Songs[j].ID == songID {
				return Coordinate{Album: i, Song: j}, true
			}
		}
	}
	return Coordinate{}, false
}

// Next returns the coordinate of the song after at, wrapping from the last
// song of the last album to the first song of the first album. Albums with
// no songs are skipped. Returns false when the catalog holds no songs at all.
func (c *Catalog) Next(at Coordinate) (Coordinate, bool) {
	if c.TotalSongs() == 0 {
		return Coordinate{}, false
	}

	album, song := at.Album, at.Song+1
	for hops := 0; hops <= len(c.Albums); hops++ {
		if album >= 0 && album < len(c.Albums) && song < len(c.Albums[album].Songs) {
			return Coordinate{Album: album, Song: song}, true
		}
		album = (album + 1) % len(c.Albums)
		song = 0
	}
	return Coordinate{}, false
}

// Prev is the inverse of Next: the song before at, wrapping from the first
// song of the first album to the last song of the last album, skipping
// empty albums.
func (c *Catalog) Prev(at Coordinate) (Coordinate, bool) {
	if c.TotalSongs() == 0 {
		return Coordinate{}, false
	}

	album, song := at.Album, at.Song-1
	for hops := 0; hops <= len(c.Albums); hops++ {
		if album >= 0 && album < len(c.Albums) && song >= 0 && song < len(c.Albums[album].Songs) {
			return Coordinate{Album: album, Song: song}, true
		}
		album = (album - 1 + len(c.Albums)) % len(c.Albums)
		song = len(c.Albums[album].Songs) - 1
	}
	return Coordinate{}, false
}
