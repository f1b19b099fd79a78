package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/store"
)

func TestJoinParts(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		expected string
	}{
		{
			name:     "empty slice",
			parts:    []string{},
			expected: "",
		},
		{
			name:     "single part",
			parts:    []string{"PLAYING"},
			expected: "PLAYING",
		},
		{
			name:     "two parts",
			parts:    []string{"PLAYING", "Perfect"},
			expected: "PLAYING │ Perfect",
		},
		{
			name:     "three parts",
			parts:    []string{"● PLAYING", "Perfect", "1:23/4:23"},
			expected: "● PLAYING │ Perfect │ 1:23/4:23",
		},
		{
			name:     "nil slice",
			parts:    nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := joinParts(tt.parts)
			if result != tt.expected {
				t.Errorf("joinParts(%v) = %q, want %q", tt.parts, result, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{0, "0:00"},
		{time.Second, "0:01"},
		{59 * time.Second, "0:59"},
		{time.Minute, "1:00"},
		{4*time.Minute + 23*time.Second, "4:23"},
		{90 * time.Minute, "90:00"},
		{time.Second + 600*time.Millisecond, "0:02"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := formatDuration(tt.input)
			if result != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderProgress(t *testing.T) {
	t.Run("no duration shows position only", func(t *testing.T) {
		result := renderProgress(42*time.Second, 0)
		if result != "0:42" {
			t.Errorf("renderProgress() = %q, want %q", result, "0:42")
		}
	})

	t.Run("zero position is all empty", func(t *testing.T) {
		result := renderProgress(0, 4*time.Minute)
		if strings.Contains(result, "█") {
			t.Errorf("renderProgress() = %q, expected no filled cells", result)
		}
		if !strings.HasSuffix(result, "0:00/4:00") {
			t.Errorf("renderProgress() = %q, expected to end with times", result)
		}
	})

	t.Run("full position is all filled", func(t *testing.T) {
		result := renderProgress(4*time.Minute, 4*time.Minute)
		if strings.Contains(result, "░") {
			t.Errorf("renderProgress() = %q, expected no empty cells", result)
		}
	})

	t.Run("halfway is half filled", func(t *testing.T) {
		result := renderProgress(2*time.Minute, 4*time.Minute)
		filled := strings.Count(result, "█")
		empty := strings.Count(result, "░")
		if filled != empty {
			t.Errorf("renderProgress() filled=%d empty=%d, want equal", filled, empty)
		}
	})

	t.Run("position past duration does not overflow", func(t *testing.T) {
		result := renderProgress(5*time.Minute, 4*time.Minute)
		if strings.Count(result, "█") > 24 {
			t.Errorf("renderProgress() = %q, bar overflowed", result)
		}
	})
}

func TestSongArtist(t *testing.T) {
	tests := []struct {
		name     string
		song     catalog.Song
		expected string
	}{
		{
			name:     "with artist",
			song:     catalog.Song{Title: "Perfect", Artist: "Ed Sheeran"},
			expected: "Ed Sheeran",
		},
		{
			name:     "without artist",
			song:     catalog.Song{Title: "Perfect"},
			expected: "Unknown Artist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := songArtist(tt.song)
			if result != tt.expected {
				t.Errorf("songArtist() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestRequesterNames(t *testing.T) {
	tests := []struct {
		name         string
		participants []store.Participant
		expected     string
	}{
		{
			name:         "no participants",
			participants: nil,
			expected:     "-",
		},
		{
			name:         "single participant",
			participants: []store.Participant{{UID: "u1", Name: "Alice"}},
			expected:     "Alice",
		},
		{
			name: "multiple participants",
			participants: []store.Participant{
				{UID: "u1", Name: "Alice"},
				{UID: "u2", Name: "Bob"},
			},
			expected: "Alice, Bob",
		},
		{
			name: "nameless participants are skipped",
			participants: []store.Participant{
				{UID: "u1"},
				{UID: "u2", Name: "Bob"},
			},
			expected: "Bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := requesterNames(tt.participants)
			if result != tt.expected {
				t.Errorf("requesterNames() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestNewStatusRenderer(t *testing.T) {
	renderer := NewStatusRenderer(nil)

	if renderer == nil {
		t.Fatal("NewStatusRenderer() returned nil")
	}

	if renderer.maxAnimFrame <= 0 {
		t.Error("maxAnimFrame should be positive")
	}

	if renderer.ticksPerFrame <= 0 {
		t.Error("ticksPerFrame should be positive")
	}
}

func TestStatusRendererAdvanceAnimation(t *testing.T) {
	renderer := NewStatusRenderer(nil)

	initialFrame := renderer.animFrame

	for i := 0; i < renderer.ticksPerFrame-1; i++ {
		renderer.AdvanceAnimation()
	}

	if renderer.animFrame != initialFrame {
		t.Error("Animation frame changed before ticksPerFrame ticks")
	}

	renderer.AdvanceAnimation()

	if renderer.animFrame != (initialFrame+1)%renderer.maxAnimFrame {
		t.Errorf("Animation frame = %d, want %d",
			renderer.animFrame, (initialFrame+1)%renderer.maxAnimFrame)
	}

	if renderer.tickCount != 0 {
		t.Errorf("tickCount = %d, want 0 after frame advance", renderer.tickCount)
	}
}

func TestStatusRendererRenderIdle(t *testing.T) {
	renderer := NewStatusRenderer(nil)

	result := renderer.Render()
	if !strings.Contains(result, "IDLE") {
		t.Errorf("Render() = %q, expected to contain 'IDLE'", result)
	}

	result = renderer.renderIdle(true)
	if !strings.Contains(result, "MUTED") {
		t.Errorf("renderIdle(true) = %q, expected to contain 'MUTED'", result)
	}
}
