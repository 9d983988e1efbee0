package storage

import (
	"fmt"

	"github.com/kbukum/filevault/logger"
)

// Factory creates the backend for one storage class rooted at root.
type Factory func(class Class, root string, cfg Config, log *logger.Logger) (Backend, error)

var factories = make(map[string]Factory)

// RegisterFactory registers a backend factory for the given provider name.
// Implementation packages call this in an init function.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// Open builds the three backends described by cfg and returns them as a Set.
// Ensure the provider package has been imported (e.g.
// _ "github.com/kbukum/filevault/storage/local") so its factory is registered.
func Open(cfg Config, log *logger.Logger) (*Set, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	backends := make(map[Class]Backend, 3)
	for _, class := range Classes() {
		root := cfg.Root(class)
		log.Info("initializing storage root", logger.Fields(
			"provider", cfg.Provider,
			logger.FieldStorageClass, string(class),
			"root", root,
		))
		b, err := f(class, root, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("storage: open %s root: %w", class, err)
		}
		backends[class] = b
	}
	return NewSet(backends[ClassPublic], backends[ClassPrivate], backends[ClassTemp]), nil
}
