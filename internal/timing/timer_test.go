package timing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
)

func muteLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	return &lines
}

func TestWallClock(t *testing.T) {
	m, err := WallClock{}.Measure(Invocation{Stdout: []byte("garbage"), Elapsed: 2500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 2.5, m.Seconds)
	assert.False(t, m.HasLog)
}

func TestLogTimer(t *testing.T) {
	timer, err := New("log", "sct-6", 0)
	require.NoError(t, err)
	assert.Equal(t, "log:sct-6", timer.Name())

	m, err := timer.Measure(Invocation{Stdout: []byte("x; 4.25 s\n"), Elapsed: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 4.25, m.Seconds)
	assert.True(t, m.HasLog)

	_, err = timer.Measure(Invocation{Stdout: []byte("crashed\n")})
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestCrossCheck(t *testing.T) {
	logged := muteLogs(t)

	timer, err := New("crosscheck", "sct-6", 0.5)
	require.NoError(t, err)

	m, err := timer.Measure(Invocation{Stdout: []byte("x; 10.2 s\n"), Elapsed: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.Seconds, "wall clock is authoritative")
	assert.Equal(t, 10.2, m.LogSeconds)
	assert.Empty(t, m.Warning)

	m, err = timer.Measure(Invocation{Stdout: []byte("x; 3 s\n"), Elapsed: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.Seconds)
	assert.Contains(t, m.Warning, "differ")

	m, err = timer.Measure(Invocation{Stdout: []byte("no report\n"), Elapsed: time.Second})
	require.NoError(t, err, "parse failure is not fatal")
	assert.False(t, m.HasLog)
	assert.True(t, strings.Contains(m.Warning, "runtime report not found"))

	assert.Len(t, *logged, 2)
}

func TestNew(t *testing.T) {
	timer, err := New("", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "wallclock", timer.Name())

	_, err = New("log", "", 0)
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = New("sundial", "sct-6", 0)
	assert.ErrorContains(t, err, "unknown timer")
}
