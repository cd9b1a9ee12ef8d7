package syncer

import (
	"fmt"
	"time"
)

// DeriveKey builds the deterministic fallback key for a fine the source did
// not assign an AIT number to. The emission timestamp is truncated to whole
// seconds in UTC so repeated syncs of the same logical event always produce
// the same key.
func DeriveKey(vehicleCode int64, infractionCode string, emission time.Time) string {
	truncated := emission.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
	return fmt.Sprintf("%d_%s_%s", vehicleCode, infractionCode, truncated)
}
