package service

import (
	"fmt"
	"time"

	"github.com/nanorand/nanorand"
)

// TrackingNumber: TRK-<unix>-<случайный суффикс>.
func TrackingNumber(now time.Time) (string, error) {
	rng, err := nanorand.Gen(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TRK-%d-%s", now.Unix(), rng), nil
}
