package services

import (
	"context"

	"resqall/interfaces"
	"resqall/utils"

	"github.com/sirupsen/logrus"
)

// PermissionGate ensures the capture capabilities are granted before the
// pipeline starts. It is idempotent: already-granted capabilities are
// re-checked, never re-prompted.
type PermissionGate struct {
	checker interfaces.PermissionChecker
}

func NewPermissionGate(checker interfaces.PermissionChecker) *PermissionGate {
	return &PermissionGate{
		checker: checker,
	}
}

// EnsurePermissions checks every requested capability and requests any that
// is not yet granted, once. The returned map always holds the final status
// of every requested capability. If any capability stays denied the error
// is a PermissionDenied naming the first denied one in request order; the
// caller decides which capabilities are mandatory.
func (pg *PermissionGate) EnsurePermissions(ctx context.Context, required ...interfaces.Capability) (map[interfaces.Capability]interfaces.PermissionStatus, error) {
	granted := make(map[interfaces.Capability]interfaces.PermissionStatus, len(required))
	var firstDenied error

	for _, capability := range required {
		status, err := pg.checker.Status(ctx, capability)
		if err != nil {
			logrus.Warnf("Failed to read %s permission status: %v", capability, err)
			status = interfaces.PermissionUndetermined
		}

		if status != interfaces.PermissionGranted {
			status, err = pg.checker.Request(ctx, capability)
			if err != nil {
				logrus.Warnf("Permission request for %s failed: %v", capability, err)
				status = interfaces.PermissionDenied
			}
		}

		granted[capability] = status

		if status != interfaces.PermissionGranted && firstDenied == nil {
			firstDenied = utils.NewPermissionDeniedError(string(capability))
		}
	}

	return granted, firstDenied
}
