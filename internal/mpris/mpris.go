// Package mpris exposes the playback engine on the session bus so desktop
// media controls (playerctl, media keys) can drive it.
package mpris

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/grooveboxdev/groovebox-cli/internal/cache"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/player"
	"github.com/rs/zerolog/log"
)

const (
	busName    = "org.mpris.MediaPlayer2.groovebox"
	objectPath = dbus.ObjectPath("/org/mpris/MediaPlayer2")

	rootInterface   = "org.mpris.MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"

	positionRefresh = time.Second
)

// Bridge publishes engine state over MPRIS and forwards control methods
// back into the engine.
type Bridge struct {
	conn    *dbus.Conn
	engine  *player.Engine
	artwork *cache.Cache
	props   *prop.Properties
	done    chan struct{}
}

// New connects to the session bus and claims the player name. Callers on
// systems without a session bus get an error and should run without the
// bridge. artwork may be nil; covers are then published by remote URL.
func New(engine *player.Engine, artwork *cache.Cache) (*Bridge, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus unavailable: %w", err)
	}

	b := &Bridge{
		conn:    conn,
		engine:  engine,
		artwork: artwork,
		done:    make(chan struct{}),
	}

	if err := b.export(); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagReplaceExisting)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to claim bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already owned", busName)
	}

	go b.refreshPosition()

	log.Debug().Str("name", busName).Msg("MPRIS bridge started")
	return b, nil
}

func (b *Bridge) export() error {
	if err := b.conn.Export(root{}, objectPath, rootInterface); err != nil {
		return fmt.Errorf("failed to export root interface: %w", err)
	}
	if err := b.conn.Export(control{engine: b.engine}, objectPath, playerInterface); err != nil {
		return fmt.Errorf("failed to export player interface: %w", err)
	}

	status := b.engine.Status()
	propsSpec := map[string]map[string]*prop.Prop{
		rootInterface: {
			"CanQuit":             staticProp(false),
			"CanRaise":            staticProp(false),
			"HasTrackList":        staticProp(false),
			"Identity":            staticProp("Groovebox"),
			"SupportedUriSchemes": staticProp([]string{}),
			"SupportedMimeTypes":  staticProp([]string{"audio/mpeg"}),
		},
		playerInterface: {
			"PlaybackStatus": staticProp(playbackStatus(status.State)),
			"Metadata":       staticProp(metadata(status)),
			"Position":       positionProp(0),
			"Rate":           staticProp(1.0),
			"MinimumRate":    staticProp(1.0),
			"MaximumRate":    staticProp(1.0),
			"CanGoNext":      staticProp(true),
			"CanGoPrevious":  staticProp(true),
			"CanPlay":        staticProp(true),
			"CanPause":       staticProp(true),
			"CanSeek":        staticProp(true),
			"CanControl":     staticProp(true),
			"Volume": {
				Value:    float64(status.Volume) / 100.0,
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: b.handleVolumeChange,
			},
		},
	}

	props, err := prop.Export(b.conn, objectPath, propsSpec)
	if err != nil {
		return fmt.Errorf("failed to export properties: %w", err)
	}
	b.props = props
	return nil
}

// handleVolumeChange applies an external volume write. godbus invokes the
// callback while holding the properties mutex, and the engine's change
// fan-out comes back through Update → SetMust on those same properties,
// so the engine call must not run on this stack.
func (b *Bridge) handleVolumeChange(c *prop.Change) *dbus.Error {
	volume, ok := c.Value.(float64)
	if !ok {
		return dbus.MakeFailedError(fmt.Errorf("volume must be a double"))
	}
	go b.engine.SetVolume(int(volume * 100))
	return nil
}

func staticProp(value interface{}) *prop.Prop {
	return &prop.Prop{Value: value, Writable: false, Emit: prop.EmitTrue}
}

// Position changes continuously; per the MPRIS spec it must not emit
// PropertiesChanged on every tick.
func positionProp(value int64) *prop.Prop {
	return &prop.Prop{Value: value, Writable: false, Emit: prop.EmitFalse}
}

// Update republishes the engine status. Wire it to the engine's change
// callback.
func (b *Bridge) Update(status player.Status) {
	if b.props == nil {
		return
	}
	b.props.SetMust(playerInterface, "PlaybackStatus", playbackStatus(status.State))
	b.props.SetMust(playerInterface, "Metadata", metadata(status))
	b.props.SetMust(playerInterface, "Volume", float64(status.Volume)/100.0)
	b.props.SetMust(playerInterface, "Position", status.Position.Microseconds())

	if b.artwork != nil && status.HasSong && status.Song.Image != "" {
		go b.publishArtwork(status.Song)
	}
}

// publishArtwork swaps the remote cover URL for a cached local file once
// the download finishes, as long as the song is still current.
func (b *Bridge) publishArtwork(song catalog.Song) {
	path, err := b.artwork.ArtworkPath(song.Image)
	if err != nil {
		log.Debug().Err(err).Str("url", song.Image).Msg("Failed to cache artwork")
		return
	}

	current := b.engine.Status()
	if !current.HasSong || current.Song.ID != song.ID {
		return
	}

	meta := metadata(current)
	meta["mpris:artUrl"] = dbus.MakeVariant("file://" + path)
	b.props.SetMust(playerInterface, "Metadata", meta)
}

func (b *Bridge) refreshPosition() {
	ticker := time.NewTicker(positionRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			status := b.engine.Status()
			if status.State != player.StatePlaying || b.props == nil {
				continue
			}
			b.props.SetMust(playerInterface, "Position", status.Position.Microseconds())
		}
	}
}

// Close releases the bus name and disconnects.
func (b *Bridge) Close() {
	close(b.done)
	if _, err := b.conn.ReleaseName(busName); err != nil {
		log.Debug().Err(err).Msg("Failed to release bus name")
	}
	b.conn.Close()
}

func playbackStatus(state player.State) string {
	switch state {
	case player.StatePlaying:
		return "Playing"
	case player.StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func trackID(song catalog.Song) dbus.ObjectPath {
	if song.ID == "" {
		return dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	}
	return dbus.ObjectPath(fmt.Sprintf("/com/groovebox/track/%s", sanitizeID(string(song.ID))))
}

// D-Bus object paths only allow [A-Za-z0-9_] path elements.
func sanitizeID(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func metadata(status player.Status) map[string]dbus.Variant {
	meta := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackID(status.Song)),
	}
	if !status.HasSong {
		return meta
	}

	meta["xesam:title"] = dbus.MakeVariant(status.Song.Title)
	if status.Song.Artist != "" {
		meta["xesam:artist"] = dbus.MakeVariant([]string{status.Song.Artist})
	}
	if status.Song.Album != "" {
		meta["xesam:album"] = dbus.MakeVariant(status.Song.Album)
	}
	if status.Song.Image != "" {
		meta["mpris:artUrl"] = dbus.MakeVariant(status.Song.Image)
	}
	if status.Duration > 0 {
		meta["mpris:length"] = dbus.MakeVariant(status.Duration.Microseconds())
	}
	return meta
}

type root struct{}

func (root) Raise() *dbus.Error { return nil }
func (root) Quit() *dbus.Error  { return nil }

type control struct {
	engine *player.Engine
}

func (c control) Next() *dbus.Error {
	c.engine.Next()
	return nil
}

func (c control) Previous() *dbus.Error {
	c.engine.Prev()
	return nil
}

func (c control) Pause() *dbus.Error {
	if c.engine.State() == player.StatePlaying {
		c.engine.TogglePlayPause()
	}
	return nil
}

func (c control) Play() *dbus.Error {
	if c.engine.State() != player.StatePlaying {
		c.engine.TogglePlayPause()
	}
	return nil
}

func (c control) PlayPause() *dbus.Error {
	c.engine.TogglePlayPause()
	return nil
}

func (c control) Stop() *dbus.Error {
	if c.engine.State() == player.StatePlaying {
		c.engine.TogglePlayPause()
	}
	return nil
}

// Seek moves relative to the current position, in microseconds.
func (c control) Seek(offset int64) *dbus.Error {
	status := c.engine.Status()
	target := status.Position + time.Duration(offset)*time.Microsecond
	if target < 0 {
		target = 0
	}
	if err := c.engine.Seek(target); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (c control) SetPosition(track dbus.ObjectPath, position int64) *dbus.Error {
	if err := c.engine.Seek(time.Duration(position) * time.Microsecond); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (c control) OpenUri(uri string) *dbus.Error {
	return nil
}
