package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordUsesISTTimestamp(t *testing.T) {
	accepted := time.Date(2025, time.March, 4, 18, 45, 12, 123456000, time.UTC)
	rec := Submission{Name: "Jane", Email: "jane@example.com", Subject: "Hi", Message: "Hello", Timestamp: accepted}.Record()

	require.Equal(t, "2025-03-05T00:15:12.123456+05:30", rec.Timestamp)
	require.Equal(t, UnknownOrigin, rec.IPAddress)

	parsed, err := ParseTimestamp(rec.Timestamp)
	require.NoError(t, err)
	require.True(t, parsed.Equal(accepted))
}

func TestIDHasMicrosecondResolution(t *testing.T) {
	base := time.Date(2025, time.January, 1, 10, 0, 0, 0, IST)
	a := Submission{Timestamp: base.Add(time.Microsecond)}
	b := Submission{Timestamp: base.Add(2 * time.Microsecond)}

	require.Equal(t, "20250101_100000_000001", a.ID())
	require.NotEqual(t, a.ID(), b.ID())
}

func TestDisplayTime(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "2025-03-05T00:15:12.123456+05:30", want: "March 05, 2025 at 12:15 AM IST"},
		{raw: "2025-03-05T10:15:00Z", want: "March 05, 2025 at 03:45 PM IST"},
		{raw: "yesterday", want: "yesterday"},
		{raw: "", want: ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DisplayTime(tc.raw), tc.raw)
	}
}
