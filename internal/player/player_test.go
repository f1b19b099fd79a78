package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/grooveboxdev/groovebox-cli/internal/cache"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/config"
)

type fakeOutput struct {
	mu         sync.Mutex
	plays      []string
	playErr    error
	paused     bool
	stopped    bool
	volume     int
	muted      bool
	seekedTo   time.Duration
	position   time.Duration
	duration   time.Duration
	onFinished func()
}

func (o *fakeOutput) Play(song catalog.Song) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return o.playErr
	}
	o.plays = append(o.plays, song.Title)
	o.paused = false
	o.stopped = false
	return nil
}

func (o *fakeOutput) Pause()  { o.mu.Lock(); o.paused = true; o.mu.Unlock() }
func (o *fakeOutput) Resume() { o.mu.Lock(); o.paused = false; o.mu.Unlock() }
func (o *fakeOutput) Stop()   { o.mu.Lock(); o.stopped = true; o.mu.Unlock() }

func (o *fakeOutput) Seek(offset time.Duration) error {
	o.mu.Lock()
	o.seekedTo = offset
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) Position() time.Duration { return o.position }
func (o *fakeOutput) Duration() time.Duration { return o.duration }

func (o *fakeOutput) SetVolume(percent int) { o.mu.Lock(); o.volume = percent; o.mu.Unlock() }
func (o *fakeOutput) SetMuted(muted bool)   { o.mu.Lock(); o.muted = muted; o.mu.Unlock() }

func (o *fakeOutput) OnFinished(fn func()) { o.onFinished = fn }
func (o *fakeOutput) Close()               { o.Stop() }

func (o *fakeOutput) lastPlayed(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.plays) == 0 {
		t.Fatal("output never played anything")
	}
	return o.plays[len(o.plays)-1]
}

func (o *fakeOutput) playCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.plays)
}

type memorySnapshots struct {
	mu   sync.Mutex
	snap *cache.LastPlayed
}

func (m *memorySnapshots) SaveLastPlayed(snapshot cache.LastPlayed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &snapshot
	return nil
}

func (m *memorySnapshots) LoadLastPlayed() *cache.LastPlayed {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil
	}
	copied := *m.snap
	return &copied
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Albums: []catalog.Album{
			{
				ID:   "1",
				Name: "First Album",
				Songs: []catalog.Song{
					{ID: "1-1", Title: "Song A", Audio: "https://example.com/a.mp3"},
					{ID: "1-2", Title: "Song B", Audio: "https://example.com/b.mp3"},
				},
			},
			{
				ID:    "2",
				Name:  "Empty Album",
				Songs: []catalog.Song{},
			},
			{
				ID:   "3",
				Name: "Third Album",
				Songs: []catalog.Song{
					{ID: "3-1", Title: "Song C", Audio: "https://example.com/c.mp3"},
				},
			},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeOutput, *memorySnapshots) {
	t.Helper()
	output := &fakeOutput{}
	snapshots := &memorySnapshots{}
	engine := NewEngine(testCatalog(), output, snapshots, 70)
	t.Cleanup(engine.Close)
	return engine, output, snapshots
}

func TestEngineStartsIdle(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if got := engine.State(); got != StateIdle {
		t.Errorf("State() = %v, want StateIdle", got)
	}
	if status := engine.Status(); status.HasSong {
		t.Error("Status().HasSong = true, want false")
	}
}

func TestEngineSelectSong(t *testing.T) {
	engine, output, snapshots := newTestEngine(t)

	at := catalog.Coordinate{Album: 0, Song: 1}
	if err := engine.SelectSong(at); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}

	if got := engine.State(); got != StatePlaying {
		t.Errorf("State() = %v, want StatePlaying", got)
	}
	if got := output.lastPlayed(t); got != "Song B" {
		t.Errorf("output played %q, want %q", got, "Song B")
	}

	snap := snapshots.LoadLastPlayed()
	if snap == nil {
		t.Fatal("no snapshot saved")
	}
	if snap.AlbumIndex != 0 || snap.SongIndex != 1 || !snap.IsPlaying {
		t.Errorf("snapshot = %+v, want album 0 song 1 playing", snap)
	}
}

func TestEngineSelectSongInvalid(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{Album: 9, Song: 0}); err == nil {
		t.Error("SelectSong() with bad album expected error")
	}
	if err := engine.SelectSong(catalog.Coordinate{Album: 1, Song: 0}); err == nil {
		t.Error("SelectSong() into empty album expected error")
	}
	if got := engine.State(); got != StateIdle {
		t.Errorf("State() = %v after invalid selections, want StateIdle", got)
	}
	if output.playCount() != 0 {
		t.Errorf("output played %d songs, want 0", output.playCount())
	}
}

func TestEngineTogglePlayPause(t *testing.T) {
	engine, output, snapshots := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}

	engine.TogglePlayPause()
	if got := engine.State(); got != StatePaused {
		t.Errorf("State() = %v after pause, want StatePaused", got)
	}
	if !output.paused {
		t.Error("output not paused")
	}
	if snap := snapshots.LoadLastPlayed(); snap == nil || snap.IsPlaying {
		t.Errorf("snapshot = %+v, want IsPlaying false", snap)
	}

	engine.TogglePlayPause()
	if got := engine.State(); got != StatePlaying {
		t.Errorf("State() = %v after resume, want StatePlaying", got)
	}
	if output.paused {
		t.Error("output still paused after resume")
	}
	// Resuming a loaded song must not restart it.
	if output.playCount() != 1 {
		t.Errorf("output played %d times, want 1", output.playCount())
	}
}

func TestEngineToggleWithNothingSelectedStartsFirstSong(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	engine.TogglePlayPause()

	if got := engine.State(); got != StatePlaying {
		t.Errorf("State() = %v, want StatePlaying", got)
	}
	if got := output.lastPlayed(t); got != "Song A" {
		t.Errorf("output played %q, want %q", got, "Song A")
	}
}

func TestEnginePlayFailureFallsBackToPaused(t *testing.T) {
	engine, output, _ := newTestEngine(t)
	output.playErr = errors.New("no audio device")

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}

	if got := engine.State(); got != StatePaused {
		t.Errorf("State() = %v after failed play, want StatePaused", got)
	}
	status := engine.Status()
	if !status.HasSong || status.Song.Title != "Song A" {
		t.Errorf("Status().Song = %v, want the selected song kept", status.Song)
	}

	// Toggling after the failure retries from the start.
	output.playErr = nil
	engine.TogglePlayPause()
	if got := engine.State(); got != StatePlaying {
		t.Errorf("State() = %v after retry, want StatePlaying", got)
	}
	if got := output.lastPlayed(t); got != "Song A" {
		t.Errorf("retry played %q, want %q", got, "Song A")
	}
}

func TestEngineNextSkipsEmptyAlbum(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{Album: 0, Song: 1}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}

	engine.Next()
	if got := output.lastPlayed(t); got != "Song C" {
		t.Errorf("Next() played %q, want %q (empty album skipped)", got, "Song C")
	}

	engine.Next()
	if got := output.lastPlayed(t); got != "Song A" {
		t.Errorf("Next() played %q, want wraparound to %q", got, "Song A")
	}
}

func TestEnginePrevWrapsBackwards(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}

	engine.Prev()
	if got := output.lastPlayed(t); got != "Song C" {
		t.Errorf("Prev() from first song played %q, want %q", got, "Song C")
	}
}

func TestEngineNextWhilePausedStaysPaused(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}
	engine.TogglePlayPause()

	engine.Next()
	if got := engine.State(); got != StatePaused {
		t.Errorf("State() = %v after Next while paused, want StatePaused", got)
	}
	if output.playCount() != 1 {
		t.Errorf("output played %d times, want 1 (no autoplay while paused)", output.playCount())
	}
	if status := engine.Status(); status.Song.Title != "Song B" {
		t.Errorf("Status().Song = %q, want %q", status.Song.Title, "Song B")
	}
}

func TestEngineSongEndedAdvances(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{Album: 2, Song: 0}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}

	output.onFinished()

	if got := output.lastPlayed(t); got != "Song A" {
		t.Errorf("after song end output played %q, want wraparound to %q", got, "Song A")
	}
	if got := engine.State(); got != StatePlaying {
		t.Errorf("State() = %v after song end, want StatePlaying", got)
	}
}

func TestEngineRestore(t *testing.T) {
	engine, output, snapshots := newTestEngine(t)
	snapshots.SaveLastPlayed(cache.LastPlayed{
		AlbumIndex: 2,
		SongIndex:  0,
		Song:       catalog.Song{ID: "3-1", Title: "Song C"},
		IsPlaying:  true,
	})

	engine.Restore()

	// Restored sessions come back paused regardless of how they ended.
	if got := engine.State(); got != StatePaused {
		t.Errorf("State() = %v after restore, want StatePaused", got)
	}
	status := engine.Status()
	if status.Song.Title != "Song C" {
		t.Errorf("restored song = %q, want %q", status.Song.Title, "Song C")
	}
	if output.playCount() != 0 {
		t.Errorf("output played %d times during restore, want 0", output.playCount())
	}

	// Resuming starts the restored song from the top.
	engine.TogglePlayPause()
	if got := output.lastPlayed(t); got != "Song C" {
		t.Errorf("resume played %q, want %q", got, "Song C")
	}
}

func TestEngineRestoreRelocatesMovedSong(t *testing.T) {
	engine, _, snapshots := newTestEngine(t)
	// Indexes point at the wrong place but the song still exists.
	snapshots.SaveLastPlayed(cache.LastPlayed{
		AlbumIndex: 0,
		SongIndex:  0,
		Song:       catalog.Song{ID: "3-1", Title: "Song C"},
	})

	engine.Restore()

	status := engine.Status()
	if status.Song.ID != "3-1" {
		t.Errorf("restored song id = %q, want relocated %q", status.Song.ID, "3-1")
	}
	if status.At.Album != 2 || status.At.Song != 0 {
		t.Errorf("restored coordinate = %+v, want album 2 song 0", status.At)
	}
}

func TestEngineRestoreDropsUnknownSong(t *testing.T) {
	engine, _, snapshots := newTestEngine(t)
	snapshots.SaveLastPlayed(cache.LastPlayed{
		AlbumIndex: 0,
		SongIndex:  0,
		Song:       catalog.Song{ID: "gone", Title: "Deleted Song"},
	})

	engine.Restore()

	if got := engine.State(); got != StateIdle {
		t.Errorf("State() = %v after restoring unknown song, want StateIdle", got)
	}
}

func TestEngineVolumeAndMute(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	engine.SetVolume(150)
	if got := engine.Volume(); got != 100 {
		t.Errorf("Volume() = %d, want clamped 100", got)
	}
	if output.volume != 100 {
		t.Errorf("output volume = %d, want 100", output.volume)
	}

	engine.ToggleMute()
	if !engine.IsMuted() || !output.muted {
		t.Error("ToggleMute() did not mute")
	}
	if got := engine.Volume(); got != 100 {
		t.Errorf("Volume() while muted = %d, want retained 100", got)
	}

	engine.ToggleMute()
	if engine.IsMuted() || output.muted {
		t.Error("second ToggleMute() did not unmute")
	}
	if got := engine.Volume(); got != 100 {
		t.Errorf("Volume() after unmute = %d, want 100", got)
	}
}

func TestEngineZeroVolumeCountsAsMuted(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	engine.SetVolume(0)
	if !engine.IsMuted() || !output.muted {
		t.Error("SetVolume(0) did not set the muted indicator")
	}
	if !engine.Status().Muted {
		t.Error("Status().Muted = false after SetVolume(0)")
	}

	engine.ToggleMute()
	if engine.IsMuted() {
		t.Error("ToggleMute() did not unmute")
	}
	if got := engine.Volume(); got != 70 {
		t.Errorf("unmute restored volume %d, want prior 70", got)
	}
	if output.volume != 70 {
		t.Errorf("output volume = %d, want 70", output.volume)
	}

	// Repeated toggles keep restoring; volume never sticks at zero.
	engine.ToggleMute()
	engine.ToggleMute()
	if got := engine.Volume(); got != 70 {
		t.Errorf("Volume() after toggle cycle = %d, want 70", got)
	}
}

func TestEngineAudibleVolumeUnmutes(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	engine.SetVolume(0)
	engine.SetVolume(25)
	if engine.IsMuted() || output.muted {
		t.Error("audible SetVolume left the engine muted")
	}

	// The latest audible level is what unmute comes back to.
	engine.SetVolume(0)
	engine.ToggleMute()
	if got := engine.Volume(); got != 25 {
		t.Errorf("unmute restored volume %d, want 25", got)
	}
}

func TestEngineStartsMutedAtZeroVolume(t *testing.T) {
	output := &fakeOutput{}
	engine := NewEngine(testCatalog(), output, &memorySnapshots{}, 0)
	t.Cleanup(engine.Close)

	if !engine.IsMuted() || !output.muted {
		t.Error("engine constructed at volume 0 is not muted")
	}

	engine.ToggleMute()
	if got := engine.Volume(); got != config.DefaultVolume {
		t.Errorf("unmute restored volume %d, want default %d", got, config.DefaultVolume)
	}
}

func TestEngineSeekIgnoredWhenNothingLoaded(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.Seek(10 * time.Second); err != nil {
		t.Errorf("Seek() error = %v, want nil", err)
	}
	if output.seekedTo != 0 {
		t.Errorf("output seeked to %v, want untouched", output.seekedTo)
	}

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}
	if err := engine.Seek(10 * time.Second); err != nil {
		t.Errorf("Seek() error = %v", err)
	}
	if output.seekedTo != 10*time.Second {
		t.Errorf("output seeked to %v, want 10s", output.seekedTo)
	}
}

func TestEngineSeekReportsNewPosition(t *testing.T) {
	engine, output, _ := newTestEngine(t)

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}
	engine.TogglePlayPause() // seek while paused must still be reported

	var statuses []Status
	engine.OnChange(func(s Status) { statuses = append(statuses, s) })

	output.position = 42 * time.Second
	if err := engine.Seek(42 * time.Second); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	if len(statuses) == 0 {
		t.Fatal("Seek() did not report a state change")
	}
	if got := statuses[len(statuses)-1].Position; got != 42*time.Second {
		t.Errorf("reported position = %v, want 42s", got)
	}
}

func TestEngineOnChangeFires(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	var statuses []Status
	engine.OnChange(func(s Status) { statuses = append(statuses, s) })

	if err := engine.SelectSong(catalog.Coordinate{}); err != nil {
		t.Fatalf("SelectSong() error = %v", err)
	}
	engine.TogglePlayPause()

	if len(statuses) < 2 {
		t.Fatalf("OnChange fired %d times, want at least 2", len(statuses))
	}
	last := statuses[len(statuses)-1]
	if last.State != StatePaused || last.Song.Title != "Song A" {
		t.Errorf("last status = %+v, want paused Song A", last)
	}
}

func TestPercentToExponent(t *testing.T) {
	tests := []struct {
		percent float64
		want    float64
	}{
		{0, MinVolumeDB},
		{-10, MinVolumeDB},
		{100, 0},
		{150, 0},
	}
	for _, tt := range tests {
		if got := percentToExponent(tt.percent); got != tt.want {
			t.Errorf("percentToExponent(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}

	// Mid-range volumes map strictly between the extremes.
	mid := percentToExponent(50)
	if mid <= MinVolumeDB || mid >= 0 {
		t.Errorf("percentToExponent(50) = %v, want between %v and 0", mid, MinVolumeDB)
	}
}
