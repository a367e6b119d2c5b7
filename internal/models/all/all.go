// Package all registers every model layer.
package all

import (
	// Register models
	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/intermediate"
	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/marts"
	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/staging"
)
