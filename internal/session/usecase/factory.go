package usecase

import "photoshoot-studio/internal/session/config"

// ProjectorFactory builds one projector per connected client from shared
// collaborators.
type ProjectorFactory struct {
	deps Deps
	cfg  *config.Config
}

// NewProjectorFactory compiles the guard when deps carries none.
func NewProjectorFactory(deps Deps, cfg *config.Config) (*ProjectorFactory, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Guard == nil {
		guard, err := NewGuard(cfg)
		if err != nil {
			return nil, err
		}
		deps.Guard = guard
	}
	return &ProjectorFactory{deps: deps, cfg: cfg}, nil
}

// New starts a projector for a client on route.
func (f *ProjectorFactory) New(route string) *Projector {
	return NewProjector(f.deps, f.cfg, route)
}
