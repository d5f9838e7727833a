package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var rules = Rules{MaxMessageLength: 10, MaxUsernameLength: 8, MaxRoomNameLength: 5}

func TestSanitizeStripsTags(t *testing.T) {
	require.Equal(t, "hello world", Sanitize("  <b>hello</b> <script>world</script> "))
	require.Equal(t, "a < b", Sanitize("a < b"))
}

func TestUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "", ok: false},
		{in: "   ", ok: false},
		{in: "alice", want: "alice", ok: true},
		{in: "Bob_42", want: "Bob_42", ok: true},
		{in: " carol ", want: "carol", ok: true},
		{in: "<i>dave</i>", want: "dave", ok: true},
		{in: "toolongname", ok: false},
		{in: "bad name", ok: false},
		{in: "bad-name", ok: false},
		{in: "émile", ok: false},
	}
	for _, tc := range cases {
		got, ok := rules.Username(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestText(t *testing.T) {
	got, ok := rules.Text("  hi <b>there</b> ")
	require.True(t, ok)
	require.Equal(t, "hi there", got)

	_, ok = rules.Text("<p></p>")
	require.False(t, ok)

	_, ok = rules.Text(strings.Repeat("x", 11))
	require.False(t, ok)

	// Length is measured in runes, not bytes.
	got, ok = rules.Text(strings.Repeat("é", 10))
	require.True(t, ok)
	require.Equal(t, strings.Repeat("é", 10), got)
}

func TestRoomName(t *testing.T) {
	name, ok, tooLong := rules.RoomName(" Lobby ")
	require.True(t, ok)
	require.False(t, tooLong)
	require.Equal(t, "Lobby", name)

	_, ok, tooLong = rules.RoomName("  ")
	require.False(t, ok)
	require.False(t, tooLong)

	_, ok, tooLong = rules.RoomName("lounge")
	require.False(t, ok)
	require.True(t, tooLong)
}
