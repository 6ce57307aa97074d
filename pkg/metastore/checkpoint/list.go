package checkpoint

import (
	"context"
	"fmt"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
)

func validateList(job string, limit int) error {
	const op = "list checkpoints"
	if job == "" {
		return mserrors.InvalidArgument(op, "job", "must not be empty")
	}
	if limit <= 0 {
		return mserrors.InvalidArgument(op, "limit", fmt.Sprintf("must be positive, got %d", limit))
	}
	return nil
}

// latest reads the newest checkpoint through List.
func latest(ctx context.Context, s Store, job string) (Checkpoint, error) {
	cps, err := s.List(ctx, job, 1)
	if err != nil {
		return Checkpoint{}, err
	}
	if len(cps) == 0 {
		return Checkpoint{}, fmt.Errorf("job %q: %w", job, ErrNotFound)
	}
	return cps[0], nil
}
