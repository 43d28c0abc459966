package services

import (
	"fmt"
	"sync/atomic"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// Profile is a settings document with its per-channel scalers and readout
// renderer compiled.
type Profile struct {
	Settings settings.Settings
	Scalers  []ports.Scaler
	Readout  ports.ReadoutRenderer
}

// Compiler turns settings documents into profiles.
type Compiler struct {
	scalers  ports.ScalerFactory
	readouts ports.ReadoutCompiler
}

// NewCompiler creates a Compiler. readouts may be nil, in which case
// profiles carry no readout renderer.
func NewCompiler(scalers ports.ScalerFactory, readouts ports.ReadoutCompiler) *Compiler {
	return &Compiler{scalers: scalers, readouts: readouts}
}

// Compile validates and normalizes s and compiles everything it references.
func (c *Compiler) Compile(s settings.Settings) (*Profile, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	p := &Profile{Settings: s, Scalers: make([]ports.Scaler, len(s.Channels))}
	for i, ch := range s.Channels {
		sc, err := c.scalers.NewScaler(ch.Scale, ch.SignalLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to compile scale for %s: %w", ch.Name, err)
		}
		p.Scalers[i] = sc
	}

	if c.readouts != nil {
		r, err := c.readouts.Compile("readout", s.Readout)
		if err != nil {
			return nil, fmt.Errorf("failed to compile readout: %w", err)
		}
		p.Readout = r
	}
	return p, nil
}

// ProfileStore holds the active profile. The acquisition loop and the API
// read it concurrently while settings changes swap it.
type ProfileStore struct {
	p atomic.Pointer[Profile]
}

// NewProfileStore creates a store holding p.
func NewProfileStore(p *Profile) *ProfileStore {
	s := &ProfileStore{}
	s.p.Store(p)
	return s
}

// Load returns the active profile.
func (s *ProfileStore) Load() *Profile { return s.p.Load() }

// Swap installs p and returns the previous profile.
func (s *ProfileStore) Swap(p *Profile) *Profile { return s.p.Swap(p) }
