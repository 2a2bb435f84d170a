package auth

import (
	"context"
	"errors"

	fleetrepo "buoycloud/internal/fleet/infrastructure/postgres"
)

// ErrRestricted indicates a platform whose data is not open to viewers.
var ErrRestricted = errors.New("auth: buoy data restricted")

// BuoyAccessChecker gates observation reads on the platform's open-data flag.
type BuoyAccessChecker interface {
	EnsureBuoyAccess(ctx context.Context, role Role, buoyID int64) error
}

// OpenDataChecker checks the open-data flag against fleet master data.
type OpenDataChecker struct {
	repo *fleetrepo.BuoyRepository
}

// NewOpenDataChecker constructs an OpenDataChecker.
func NewOpenDataChecker(repo *fleetrepo.BuoyRepository) *OpenDataChecker {
	if repo == nil {
		return nil
	}
	return &OpenDataChecker{repo: repo}
}

// EnsureBuoyAccess verifies the caller may read a platform's observations.
// Admins read everything; viewers read open-data platforms only.
func (c *OpenDataChecker) EnsureBuoyAccess(ctx context.Context, role Role, buoyID int64) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if RoleAtLeast(role, RoleAdmin) {
		return nil
	}
	buoy, err := c.repo.Show(ctx, buoyID)
	if err != nil {
		return err
	}
	if !buoy.IsOpenData() {
		return ErrRestricted
	}
	return nil
}
