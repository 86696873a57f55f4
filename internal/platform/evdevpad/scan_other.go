//go:build !linux

package evdevpad

import (
	"context"

	"github.com/pkg/errors"
)

// Run returns an error on non-Linux platforms, evdev nodes do not exist there.
func (s *Source) Run(ctx context.Context) error {
	return errors.New("evdev source is only available on linux")
}
