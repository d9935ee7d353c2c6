//go:build !linux

package guard

import (
	"fmt"

	"go.uber.org/zap"
)

func newSystemdGuard(_ *zap.Logger) (Guard, error) {
	return nil, fmt.Errorf("logind inhibitors require linux")
}
