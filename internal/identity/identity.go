// Package identity manages the signed-in user profile.
//
// Groovebox delegates identity to a provider; the bundled local provider
// keeps a stable uid in a profile file so favorites and requests survive
// restarts, the way a managed provider would reissue the same uid.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ProfileFileName sits next to the main config file.
const ProfileFileName = "profile.yml"

// Identity is the provider-issued profile of a signed-in user.
type Identity struct {
	UID         string `yaml:"uid" json:"uid"`
	DisplayName string `yaml:"display_name" json:"name"`
	PhotoURL    string `yaml:"photo_url" json:"photoURL"`
}

// Provider exposes sign-in state. Implementations must be safe for use
// from the UI goroutine and background subscriptions.
type Provider interface {
	// SignIn establishes a session and returns the identity.
	SignIn() (Identity, error)
	// SignOut ends the session. Safe to call when signed out.
	SignOut()
	// Current returns the signed-in identity, or false when signed out.
	Current() (Identity, bool)
	// OnChange registers a callback invoked after every sign-in and
	// sign-out, replacing any previously registered callback.
	OnChange(fn func(Identity, bool))
}

// LocalProvider stores the profile under the config directory.
type LocalProvider struct {
	configDir   string
	displayName string

	mu       sync.Mutex
	current  *Identity
	onChange func(Identity, bool)
}

// NewLocalProvider creates a provider rooted at configDir. displayName is
// used when minting a profile for the first sign-in; empty falls back to
// $USER.
func NewLocalProvider(configDir, displayName string) *LocalProvider {
	return &LocalProvider{configDir: configDir, displayName: displayName}
}

func (p *LocalProvider) profilePath() string {
	return filepath.Join(p.configDir, ProfileFileName)
}

func (p *LocalProvider) SignIn() (Identity, error) {
	p.mu.Lock()

	if p.current != nil {
		id := *p.current
		p.mu.Unlock()
		return id, nil
	}

	id, err := p.loadOrCreateProfile()
	if err != nil {
		p.mu.Unlock()
		return Identity{}, err
	}

	p.current = &id
	fn := p.onChange
	p.mu.Unlock()

	log.Debug().Str("uid", id.UID).Str("name", id.DisplayName).Msg("Signed in")
	if fn != nil {
		fn(id, true)
	}
	return id, nil
}

func (p *LocalProvider) loadOrCreateProfile() (Identity, error) {
	data, err := os.ReadFile(p.profilePath())
	if err == nil {
		var id Identity
		if err := yaml.Unmarshal(data, &id); err == nil && id.UID != "" {
			return id, nil
		}
		log.Warn().Str("file", p.profilePath()).Msg("Profile file unreadable, minting a new identity")
	}

	name := p.displayName
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "Anonymous"
	}

	id := Identity{UID: uuid.NewString(), DisplayName: name}

	if err := os.MkdirAll(p.configDir, 0755); err != nil {
		return Identity{}, fmt.Errorf("failed to create config directory: %w", err)
	}
	out, err := yaml.Marshal(id)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(p.profilePath(), out, 0600); err != nil {
		return Identity{}, fmt.Errorf("failed to write profile: %w", err)
	}

	return id, nil
}

func (p *LocalProvider) SignOut() {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	id := *p.current
	p.current = nil
	fn := p.onChange
	p.mu.Unlock()

	log.Debug().Str("uid", id.UID).Msg("Signed out")
	if fn != nil {
		fn(id, false)
	}
}

func (p *LocalProvider) Current() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

func (p *LocalProvider) OnChange(fn func(Identity, bool)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}
