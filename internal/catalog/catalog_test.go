package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestIDUnmarshalNormalizesNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ID
	}{
		{"string id", `"42"`, "42"},
		{"numeric id", `42`, "42"},
		{"zero", `0`, "0"},
		{"string with leading zero", `"007"`, "007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if id != tt.expected {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, id, tt.expected)
			}
		})
	}
}

func TestIDUnmarshalRejectsInvalid(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`{"nested": true}`), &id); err == nil {
		t.Error("Unmarshal of object as ID should fail")
	}
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	c := Load("")

	if len(c.Albums) == 0 {
		t.Fatal("Load(\"\") returned no albums")
	}
	if len(c.TopPicks) == 0 {
		t.Fatal("Load(\"\") returned no top picks")
	}

	for _, album := range c.Albums {
		if album.Songs == nil {
			t.Errorf("album %q has nil Songs, want empty slice at minimum", album.Name)
		}
		if album.ID == "" {
			t.Errorf("album %q has empty id", album.Name)
		}
	}
}

func TestLoadFileWithMixedIDs(t *testing.T) {
	// Numeric and string ids in the same file must both come out as strings.
	data := `{
		"albums": [
			{"id": 7, "name": "Seven", "artist": "A", "image": "",
			 "songs": [{"id": 1, "title": "One", "audio": "one.mp3"}, {"title": "NoID", "audio": "two.mp3"}]},
			{"id": "8", "name": "Eight", "artist": "B", "image": ""}
		]
	}`

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c := Load(path)

	if len(c.Albums) != 2 {
		t.Fatalf("Load() returned %d albums, want 2", len(c.Albums))
	}
	if c.Albums[0].ID != "7" {
		t.Errorf("Albums[0].ID = %q, want %q", c.Albums[0].ID, "7")
	}
	if c.Albums[1].ID != "8" {
		t.Errorf("Albums[1].ID = %q, want %q", c.Albums[1].ID, "8")
	}
	if c.Albums[1].Songs == nil {
		t.Error("album without songs field should get an empty slice")
	}
	if got := c.Albums[0].Songs[1].ID; got != "2" {
		t.Errorf("song without id should get positional id %q, got %q", "2", got)
	}
}

func TestLoadUnreadableFileFallsBack(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if len(c.Albums) == 0 {
		t.Error("Load() with missing file should fall back to the built-in catalog")
	}
}

func TestFindAlbum(t *testing.T) {
	c := &Catalog{Albums: []Album{{ID: "1", Name: "First"}, {ID: "2", Name: "Second"}}}

	if got := c.FindAlbum("2"); got == nil || got.Name != "Second" {
		t.Errorf("FindAlbum(2) = %v, want Second", got)
	}
	if got := c.FindAlbum("99"); got != nil {
		t.Errorf("FindAlbum(99) = %v, want nil", got)
	}
}
