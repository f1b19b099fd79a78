package player

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	// OutputSampleRate is the fixed speaker rate; songs at other rates
	// are resampled on the fly.
	OutputSampleRate    = beep.SampleRate(44100)
	SpeakerBufferSize   = time.Millisecond * 250
	ResampleQuality     = 4
	VolumeCurveExponent = 0.5
	MinVolumeDB         = -10.0
	DownloadTimeout     = 30 * time.Second
	MaxSongBytes        = 64 << 20
)

// BeepOutput plays MP3 songs through the system speaker. Songs are fetched
// in full before decoding so that seeking works.
type BeepOutput struct {
	httpClient *http.Client

	mu            sync.Mutex
	speakerInit   bool
	streamer      beep.StreamSeekCloser
	format        beep.Format
	volume        *effects.Volume
	ctrl          *beep.Ctrl
	volumePercent int
	muted         bool
	onFinished    func()
	playSeq       int
}

func NewBeepOutput() *BeepOutput {
	return &BeepOutput{
		httpClient: &http.Client{
			Timeout: DownloadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		volumePercent: config.DefaultVolume,
	}
}

func (o *BeepOutput) OnFinished(fn func()) {
	o.mu.Lock()
	o.onFinished = fn
	o.mu.Unlock()
}

type seekReadCloser struct {
	*bytes.Reader
}

func (seekReadCloser) Close() error { return nil }

func (o *BeepOutput) fetch(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("Groovebox/%s", config.AppVersion))

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio returned status %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSongBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return data, nil
}

func (o *BeepOutput) initSpeaker() error {
	if o.speakerInit {
		return nil
	}
	if err := speaker.Init(OutputSampleRate, OutputSampleRate.N(SpeakerBufferSize)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	o.speakerInit = true
	log.Debug().Msgf("Speaker initialized at %d Hz, buffer %v", OutputSampleRate, SpeakerBufferSize)
	return nil
}

func (o *BeepOutput) Play(song catalog.Song) error {
	if song.Audio == "" {
		return fmt.Errorf("song %q has no audio source", song.Title)
	}

	log.Debug().Str("song", song.Title).Str("url", song.Audio).Msg("Fetching audio")
	data, err := o.fetch(song.Audio)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(seekReadCloser{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	o.mu.Lock()
	if err := o.initSpeaker(); err != nil {
		o.mu.Unlock()
		streamer.Close()
		return err
	}

	speaker.Clear()
	if o.streamer != nil {
		o.streamer.Close()
	}

	o.playSeq++
	seq := o.playSeq
	o.streamer = streamer
	o.format = format

	var source beep.Streamer = streamer
	if format.SampleRate != OutputSampleRate {
		source = beep.Resample(ResampleQuality, format.SampleRate, OutputSampleRate, streamer)
	}

	o.volume = &effects.Volume{
		Streamer: source,
		Base:     2,
		Volume:   percentToExponent(float64(o.volumePercent)),
		Silent:   o.muted || o.volumePercent == 0,
	}
	o.ctrl = &beep.Ctrl{Streamer: o.volume}
	ctrl := o.ctrl
	o.mu.Unlock()

	// The callback runs on the speaker goroutine; completion is handed off
	// so the handler can call back into the output without deadlocking.
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		go o.finished(seq)
	})))
	return nil
}

// finished ignores completions from songs that were replaced before ending.
func (o *BeepOutput) finished(seq int) {
	o.mu.Lock()
	stale := seq != o.playSeq
	fn := o.onFinished
	o.mu.Unlock()

	if stale || fn == nil {
		return
	}
	fn()
}

func (o *BeepOutput) Pause() {
	o.setPaused(true)
}

func (o *BeepOutput) Resume() {
	o.setPaused(false)
}

func (o *BeepOutput) setPaused(paused bool) {
	o.mu.Lock()
	ctrl := o.ctrl
	o.mu.Unlock()

	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = paused
	speaker.Unlock()
}

func (o *BeepOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.speakerInit {
		return
	}
	speaker.Clear()
	if o.streamer != nil {
		o.streamer.Close()
		o.streamer = nil
	}
	o.playSeq++
	o.ctrl = nil
	o.volume = nil
}

func (o *BeepOutput) Seek(offset time.Duration) error {
	o.mu.Lock()
	streamer := o.streamer
	format := o.format
	o.mu.Unlock()

	if streamer == nil {
		return nil
	}

	n := format.SampleRate.N(offset)
	speaker.Lock()
	if n < 0 {
		n = 0
	}
	if max := streamer.Len(); n >= max {
		n = max - 1
	}
	err := streamer.Seek(n)
	speaker.Unlock()

	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

func (o *BeepOutput) Position() time.Duration {
	o.mu.Lock()
	streamer := o.streamer
	format := o.format
	o.mu.Unlock()

	if streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := streamer.Position()
	speaker.Unlock()
	return format.SampleRate.D(pos)
}

func (o *BeepOutput) Duration() time.Duration {
	o.mu.Lock()
	streamer := o.streamer
	format := o.format
	o.mu.Unlock()

	if streamer == nil {
		return 0
	}
	speaker.Lock()
	length := streamer.Len()
	speaker.Unlock()
	return format.SampleRate.D(length)
}

func (o *BeepOutput) SetVolume(percent int) {
	percent = config.ClampVolume(percent)

	o.mu.Lock()
	o.volumePercent = percent
	volume := o.volume
	muted := o.muted
	o.mu.Unlock()

	if volume == nil {
		return
	}
	speaker.Lock()
	volume.Volume = percentToExponent(float64(percent))
	volume.Silent = muted || percent == 0
	speaker.Unlock()
}

func (o *BeepOutput) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	volume := o.volume
	percent := o.volumePercent
	o.mu.Unlock()

	if volume == nil {
		return
	}
	speaker.Lock()
	volume.Silent = muted || percent == 0
	speaker.Unlock()
}

func (o *BeepOutput) Close() {
	o.Stop()
}

// percentToExponent maps a 0-100 volume to the exponent used by the
// effects.Volume streamer, on a perceptual curve.
func percentToExponent(p float64) float64 {
	if p <= 0 {
		return MinVolumeDB
	}
	if p >= 100 {
		return 0
	}

	normalized := p / 100.0
	adjusted := math.Pow(normalized, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}
