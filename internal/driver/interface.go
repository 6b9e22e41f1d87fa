// Package driver persists finished episodes to a graph store. The core is
// agnostic to the on-disk shape; archiving is strictly downstream and its
// failures never abort episode generation.
package driver

import (
	"context"

	"github.com/agenthands/showrunner/internal/core/model"
)

type Archive interface {
	SaveEpisode(ctx context.Context, ep *model.Episode) error
	Close(ctx context.Context) error
}
