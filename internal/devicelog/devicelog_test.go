package devicelog

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padmap/gamepad"
	"github.com/soar/padmap/gamepad/gamepadtest"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func clock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestObserve(t *testing.T) {
	s := openStore(t)
	s.now = clock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	xbox := gamepad.Descriptor{ID: "xbox gamepad", Platform: gamepad.PlatformSDL, Buttons: 17, Axes: 4}
	ps := gamepad.Descriptor{ID: "054c-0268-PLAYSTATION(R)3", Platform: gamepad.PlatformFirefox, Buttons: 17, Axes: 4}

	require.NoError(t, s.Observe(xbox, gamepad.ProfileXbox))
	require.NoError(t, s.Observe(ps, gamepad.ProfilePlaystationFirefox))
	require.NoError(t, s.Observe(xbox, gamepad.ProfileXboxSDL))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "xbox gamepad", records[0].ID, "most recent first")
	assert.Equal(t, 2, records[0].Connects)
	assert.Equal(t, gamepad.ProfileXboxSDL, records[0].Profile)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC), records[0].FirstSeen)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 3, 0, 0, time.UTC), records[0].LastSeen)

	assert.Equal(t, gamepad.PlatformFirefox, records[1].Platform)
	assert.Equal(t, 1, records[1].Connects)
}

func TestSameIDOnDifferentPlatforms(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Observe(gamepad.Descriptor{ID: "pad", Platform: gamepad.PlatformWebKit}, gamepad.ProfileDefault))
	require.NoError(t, s.Observe(gamepad.Descriptor{ID: "pad", Platform: gamepad.PlatformFirefox}, gamepad.ProfileDefault))

	records, err := s.List()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Observe(gamepad.Descriptor{ID: "pad"}, gamepad.ProfileDefault))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "pad", records[0].ID)
}

func TestWriteCSV(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Observe(gamepad.Descriptor{ID: "logitech gamepad", Platform: gamepad.PlatformWebKit, Buttons: 17, Axes: 4}, gamepad.ProfileLogitechWebKit))

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,platform,profile,buttons,axes,connects,first_seen,last_seen", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "logitech gamepad,webkit,LOGITECH_WEBKIT,17,4,1,"), lines[1])
}

func TestHandlerRecordsConnects(t *testing.T) {
	s := openStore(t)
	src := gamepadtest.NewSource()
	m := gamepad.New(gamepad.WithSourceFactory(src.Factory()))
	m.OnAny(s.Handler(m))
	require.NoError(t, m.Init())
	defer m.Close()

	src.Connect(gamepadtest.NewGamepad(0, "xbox gamepad", 17, 4))
	src.Disconnect(0)
	src.Connect(gamepadtest.NewGamepad(1, "xbox gamepad", 17, 4))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Connects)
	assert.Equal(t, gamepad.ProfileXbox, records[0].Profile)
	assert.Equal(t, 17, records[0].Buttons)
}
