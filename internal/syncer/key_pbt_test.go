package syncer

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDeriveKeyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genEmission := gen.Int64Range(0, 4102444800).Map(func(s int64) time.Time {
		return time.Unix(s, 0).UTC()
	})

	properties.Property("deterministic for equal inputs", prop.ForAll(
		func(vehicle int64, infraction string, unix int64) bool {
			emission := time.Unix(unix, 0).UTC()
			return DeriveKey(vehicle, infraction, emission) == DeriveKey(vehicle, infraction, emission)
		},
		gen.Int64Range(0, 1<<40),
		gen.AlphaString(),
		gen.Int64Range(0, 4102444800),
	))

	properties.Property("independent of the input time zone", prop.ForAll(
		func(vehicle int64, offsetHours int, emission time.Time) bool {
			zone := time.FixedZone("test", offsetHours*3600)
			return DeriveKey(vehicle, "518-52", emission.In(zone)) == DeriveKey(vehicle, "518-52", emission)
		},
		gen.Int64Range(0, 1<<40),
		gen.IntRange(-12, 12),
		genEmission,
	))

	properties.Property("independent of sub-second precision", prop.ForAll(
		func(vehicle int64, nanos int64, emission time.Time) bool {
			return DeriveKey(vehicle, "518-52", emission.Add(time.Duration(nanos))) == DeriveKey(vehicle, "518-52", emission)
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, int64(time.Second-1)),
		genEmission,
	))

	properties.TestingRun(t)
}
