package relation

import (
	"log/slog"

	"github.com/google/uuid"
)

// Config holds configuration for a Graph.
type Config struct {
	// Root is the key prefix every relation key is rendered under.
	// Default: "/relation"
	Root string

	// Codec encodes edge and count records.
	// Default: JSON
	Codec Codec

	// LockStripes is the number of stripes the per-pair lock map is split into.
	// Default: 32
	// Max: 256
	LockStripes int

	// NewID generates edge ids. Ids must sort in creation order.
	// Default: UUIDv7 strings
	NewID func() (string, error)

	// Logger receives operational logs. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Root:        "/relation",
		Codec:       JSON,
		LockStripes: 32,
		NewID:       newUUIDv7,
		Logger:      slog.Default(),
	}
}

// validate fills unset fields with defaults and clamps bounds.
func (c *Config) validate() {
	if c.Root == "" {
		c.Root = "/relation"
	}
	if c.Codec == nil {
		c.Codec = JSON
	}
	if c.LockStripes < 1 {
		c.LockStripes = 32
	}
	if c.LockStripes > 256 {
		c.LockStripes = 256
	}
	if c.NewID == nil {
		c.NewID = newUUIDv7
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// newUUIDv7 returns a time-ordered id; its canonical string form sorts
// lexicographically by creation time.
func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
