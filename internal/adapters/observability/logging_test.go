package observability_test

import (
	"testing"

	"github.com/rs/zerolog"

	"safari_booking/internal/adapters/observability"
)

func TestNewLogger_Level(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := observability.NewLogger("prod", "api", in).GetLevel(); got != want {
			t.Fatalf("level %q: got %s want %s", in, got, want)
		}
	}
}
