package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/grooveboxdev/groovebox-cli/internal/cache"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/config"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateIdle State = iota
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// Output is the audio backend the engine drives. Implementations report
// track completion through the OnFinished callback.
type Output interface {
	Play(song catalog.Song) error
	Pause()
	Resume()
	Stop()
	Seek(offset time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	SetVolume(percent int)
	SetMuted(muted bool)
	OnFinished(fn func())
	Close()
}

// SnapshotStore persists the playback session between runs.
type SnapshotStore interface {
	SaveLastPlayed(snapshot cache.LastPlayed) error
	LoadLastPlayed() *cache.LastPlayed
}

// Status is a point-in-time view of the engine for rendering.
type Status struct {
	State    State
	At       catalog.Coordinate
	Song     catalog.Song
	HasSong  bool
	Volume   int
	Muted    bool
	Position time.Duration
	Duration time.Duration
}

// Engine owns the playback session: which song is selected, whether it is
// playing, and what happens when it ends. Audio itself is delegated to the
// Output.
type Engine struct {
	catalog   *catalog.Catalog
	output    Output
	snapshots SnapshotStore

	mu         sync.Mutex
	state      State
	at         catalog.Coordinate
	current    catalog.Song
	hasSong    bool
	loaded     bool
	volume     int
	lastVolume int
	muted      bool
	onChange   func(Status)
}

func NewEngine(cat *catalog.Catalog, output Output, snapshots SnapshotStore, volume int) *Engine {
	e := &Engine{
		catalog:   cat,
		output:    output,
		snapshots: snapshots,
		state:     StateIdle,
		volume:    config.ClampVolume(volume),
	}
	// Zero volume counts as muted; remember a sensible level to unmute to.
	e.muted = e.volume == 0
	e.lastVolume = e.volume
	if e.lastVolume == 0 {
		e.lastVolume = config.DefaultVolume
	}
	output.SetVolume(e.volume)
	output.SetMuted(e.muted)
	output.OnFinished(e.handleEnded)
	return e
}

// OnChange registers a callback fired after every state transition.
func (e *Engine) OnChange(fn func(Status)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Restore picks up the previous session's song, always paused. A snapshot
// that no longer matches the catalog is relocated by song id, or dropped.
func (e *Engine) Restore() {
	if e.snapshots == nil {
		return
	}
	snap := e.snapshots.LoadLastPlayed()
	if snap == nil {
		return
	}

	at := catalog.Coordinate{Album: snap.AlbumIndex, Song: snap.SongIndex}
	song := e.catalog.SongAt(at)
	if song == nil || song.ID != snap.Song.ID {
		at, song = e.locateSong(snap.Song.ID)
		if song == nil {
			log.Debug().Str("song", snap.Song.Title).Msg("Last-played song no longer in catalog")
			return
		}
	}

	e.mu.Lock()
	e.at = at
	e.current = *song
	e.hasSong = true
	e.loaded = false
	e.state = StatePaused
	e.mu.Unlock()

	log.Debug().Str("song", song.Title).Msg("Restored last-played song")
	e.notify()
}

func (e *Engine) locateSong(id catalog.ID) (catalog.Coordinate, *catalog.Song) {
	for ai := range e.catalog.Albums {
		for si := range e.catalog.Albums[ai].Songs {
			if e.catalog.Albums[ai].Songs[si].ID == id {
				at := catalog.Coordinate{Album: ai, Song: si}
				return at, &e.catalog.Albums[ai].Songs[si]
			}
		}
	}
	return catalog.Coordinate{}, nil
}

// SelectSong starts playback at the given position. If the output cannot
// play the song, the selection sticks but the engine lands in PAUSED.
func (e *Engine) SelectSong(at catalog.Coordinate) error {
	song := e.catalog.SongAt(at)
	if song == nil {
		return fmt.Errorf("no song at album %d position %d", at.Album, at.Song)
	}

	e.mu.Lock()
	e.at = at
	e.current = *song
	e.hasSong = true
	e.mu.Unlock()

	e.startPlayback(*song)
	e.persist()
	e.notify()
	return nil
}

func (e *Engine) startPlayback(song catalog.Song) {
	if err := e.output.Play(song); err != nil {
		log.Error().Err(err).Str("song", song.Title).Msg("Playback failed")
		e.mu.Lock()
		e.loaded = false
		e.state = StatePaused
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	e.loaded = true
	e.state = StatePlaying
	e.mu.Unlock()
	log.Debug().Str("song", song.Title).Msg("Now playing")
}

// TogglePlayPause flips between PLAYING and PAUSED. With nothing selected
// it starts the first song in the catalog.
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	state := e.state
	hasSong := e.hasSong
	loaded := e.loaded
	song := e.current
	e.mu.Unlock()

	if !hasSong {
		at, first := e.firstSong()
		if first == nil {
			return
		}
		e.mu.Lock()
		e.at = at
		e.current = *first
		e.hasSong = true
		e.mu.Unlock()

		e.startPlayback(*first)
		e.persist()
		e.notify()
		return
	}

	switch state {
	case StatePlaying:
		e.output.Pause()
		e.mu.Lock()
		e.state = StatePaused
		e.mu.Unlock()
	case StatePaused, StateIdle:
		if loaded {
			e.output.Resume()
			e.mu.Lock()
			e.state = StatePlaying
			e.mu.Unlock()
		} else {
			// Restored session or earlier play failure: start from the top.
			e.startPlayback(song)
		}
	}

	e.persist()
	e.notify()
}

func (e *Engine) firstSong() (catalog.Coordinate, *catalog.Song) {
	for ai := range e.catalog.Albums {
		if len(e.catalog.Albums[ai].Songs) > 0 {
			at := catalog.Coordinate{Album: ai, Song: 0}
			return at, &e.catalog.Albums[ai].Songs[0]
		}
	}
	return catalog.Coordinate{}, nil
}

// Next advances to the following song, wrapping at the end of the catalog.
func (e *Engine) Next() {
	e.step(e.catalog.Next, false)
}

// Prev moves to the preceding song, wrapping at the start of the catalog.
func (e *Engine) Prev() {
	e.step(e.catalog.Prev, false)
}

func (e *Engine) handleEnded() {
	e.step(e.catalog.Next, true)
}

func (e *Engine) step(move func(catalog.Coordinate) (catalog.Coordinate, bool), forcePlay bool) {
	e.mu.Lock()
	if !e.hasSong {
		e.mu.Unlock()
		return
	}
	at, ok := move(e.at)
	if !ok {
		e.mu.Unlock()
		return
	}
	song := e.catalog.SongAt(at)
	if song == nil {
		e.mu.Unlock()
		return
	}
	e.at = at
	e.current = *song
	wasPlaying := e.state == StatePlaying
	e.mu.Unlock()

	if wasPlaying || forcePlay {
		e.startPlayback(*song)
	} else {
		// Selection moves but a paused session stays paused.
		e.output.Stop()
		e.mu.Lock()
		e.loaded = false
		e.state = StatePaused
		e.mu.Unlock()
	}

	e.persist()
	e.notify()
}

// Seek repositions within the current song. Ignored when nothing is loaded.
func (e *Engine) Seek(offset time.Duration) error {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()

	if !loaded {
		return nil
	}
	if err := e.output.Seek(offset); err != nil {
		return err
	}
	e.notify()
	return nil
}

// SetVolume applies percent, clamped. Zero volume flips the muted
// indicator on; any audible volume clears it and becomes the level
// ToggleMute will later restore.
func (e *Engine) SetVolume(percent int) {
	percent = config.ClampVolume(percent)

	e.mu.Lock()
	e.volume = percent
	if percent == 0 {
		e.muted = true
	} else {
		e.lastVolume = percent
		e.muted = false
	}
	muted := e.muted
	e.mu.Unlock()

	e.output.SetVolume(percent)
	e.output.SetMuted(muted)
	e.notify()
}

func (e *Engine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// ToggleMute flips the muted indicator. Unmuting from a zeroed volume
// restores the last audible level.
func (e *Engine) ToggleMute() {
	e.mu.Lock()
	if e.muted {
		e.muted = false
		if e.volume == 0 {
			e.volume = e.lastVolume
		}
	} else {
		e.muted = true
	}
	volume, muted := e.volume, e.muted
	e.mu.Unlock()

	e.output.SetVolume(volume)
	e.output.SetMuted(muted)
	e.notify()
}

func (e *Engine) IsMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a consistent snapshot for rendering.
func (e *Engine) Status() Status {
	e.mu.Lock()
	status := Status{
		State:   e.state,
		At:      e.at,
		Song:    e.current,
		HasSong: e.hasSong,
		Volume:  e.volume,
		Muted:   e.muted,
	}
	loaded := e.loaded
	e.mu.Unlock()

	if loaded {
		status.Position = e.output.Position()
		status.Duration = e.output.Duration()
	}
	return status
}

func (e *Engine) persist() {
	if e.snapshots == nil {
		return
	}

	e.mu.Lock()
	if !e.hasSong {
		e.mu.Unlock()
		return
	}
	snapshot := cache.LastPlayed{
		AlbumIndex: e.at.Album,
		SongIndex:  e.at.Song,
		Song:       e.current,
		IsPlaying:  e.state == StatePlaying,
	}
	e.mu.Unlock()

	if err := e.snapshots.SaveLastPlayed(snapshot); err != nil {
		log.Warn().Err(err).Msg("Failed to save playback snapshot")
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(e.Status())
	}
}

// Close stops playback and releases the audio backend.
func (e *Engine) Close() {
	e.persist()
	e.output.Close()

	e.mu.Lock()
	e.state = StateIdle
	e.loaded = false
	e.mu.Unlock()
}
