package gesture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Threshold: 150, Margin: 150, Step: 60, Interval: 10 * time.Millisecond}
}

func TestReleaseThresholdBoundary(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want Intent
	}{
		{"just below keep", 149, None},
		{"at keep threshold", 150, Keep},
		{"past keep threshold", 420, Keep},
		{"just below drop", -149, None},
		{"at drop threshold", -150, Drop},
		{"zero", 0, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New(testConfig())
			require.True(t, in.Press())
			in.Move(tt.x)
			require.Equal(t, tt.x, in.Offset())
			require.Equal(t, tt.want, in.Release())
			require.Zero(t, in.Offset())
			require.False(t, in.Dragging())
		})
	}
}

func TestReleaseWithoutPressEmitsNothing(t *testing.T) {
	in := New(testConfig())
	in.Move(500)
	require.Zero(t, in.Offset())
	require.Equal(t, None, in.Release())
}

func TestReleaseOnlyCommitsOnce(t *testing.T) {
	in := New(testConfig())
	in.Press()
	in.Move(200)
	require.Equal(t, Keep, in.Release())
	require.Equal(t, None, in.Release())
}

func TestKeyBypassesThreshold(t *testing.T) {
	in := New(testConfig())
	require.Equal(t, Drop, in.Key(Drop))
	require.Equal(t, Undo, in.Key(Undo))
	require.Equal(t, None, in.Key(None))
}

func TestKeyAbandonsHeldDrag(t *testing.T) {
	in := New(testConfig())
	in.Press()
	in.Move(300)
	require.Equal(t, Keep, in.Key(Keep))
	require.Equal(t, None, in.Release())
}

func TestDisplacementIsPureFunctionOfElapsed(t *testing.T) {
	cfg := testConfig()
	require.Zero(t, Displacement(cfg, Keep, 0))
	require.Zero(t, Displacement(cfg, Keep, 9*time.Millisecond))
	require.Equal(t, 60.0, Displacement(cfg, Keep, 10*time.Millisecond))
	require.Equal(t, -120.0, Displacement(cfg, Drop, 25*time.Millisecond))
	require.Equal(t, 300.0, Displacement(cfg, Keep, time.Second))
	require.Equal(t, -300.0, Displacement(cfg, Drop, time.Second))
	require.Zero(t, Displacement(cfg, Keep, -time.Second))
}

func TestScriptedRunCommitsOnceAtTarget(t *testing.T) {
	in := New(testConfig())
	t0 := time.Unix(0, 0)
	run, ok := in.Start(Keep, t0)
	require.True(t, ok)
	require.True(t, in.SuppressExit())

	f := in.Advance(run, t0.Add(10*time.Millisecond))
	require.False(t, f.Done)
	require.Equal(t, 60.0, f.X)
	require.Equal(t, 60.0, in.Offset())

	f = in.Advance(run, t0.Add(40*time.Millisecond))
	require.False(t, f.Done)
	require.Equal(t, 240.0, f.X)

	f = in.Advance(run, t0.Add(50*time.Millisecond))
	require.True(t, f.Done)
	require.Equal(t, Keep, f.Intent)
	require.Zero(t, in.Offset())
	require.False(t, in.InFlight())
	require.False(t, in.SuppressExit())

	f = in.Advance(run, t0.Add(60*time.Millisecond))
	require.True(t, f.Stale)
	require.Equal(t, None, f.Intent)
}

func TestReentrancyGuardDuringScriptedRun(t *testing.T) {
	in := New(testConfig())
	t0 := time.Unix(0, 0)
	run, ok := in.Start(Drop, t0)
	require.True(t, ok)

	_, ok = in.Start(Drop, t0)
	require.False(t, ok, "same decision")
	_, ok = in.Start(Keep, t0)
	require.False(t, ok, "opposite decision")
	require.Equal(t, None, in.Key(Keep))
	require.Equal(t, None, in.Key(Undo))
	require.False(t, in.Press())
	in.Move(999)
	require.Equal(t, None, in.Release())

	commits := 0
	for ms := 10; ms <= 100; ms += 10 {
		if f := in.Advance(run, t0.Add(time.Duration(ms)*time.Millisecond)); f.Done {
			require.Equal(t, Drop, f.Intent)
			commits++
		}
	}
	require.Equal(t, 1, commits)

	_, ok = in.Start(Keep, t0)
	require.True(t, ok, "guard lifts once the run completes")
}

func TestCancelDiscardsRun(t *testing.T) {
	in := New(testConfig())
	t0 := time.Unix(0, 0)
	run, _ := in.Start(Keep, t0)
	in.Advance(run, t0.Add(20*time.Millisecond))
	require.NotZero(t, in.Offset())

	in.Cancel()
	require.Zero(t, in.Offset())
	require.False(t, in.InFlight())

	f := in.Advance(run, t0.Add(time.Second))
	require.True(t, f.Stale)
	require.Zero(t, in.Offset())
}

func TestStartRejectsNonDecisions(t *testing.T) {
	in := New(testConfig())
	_, ok := in.Start(Undo, time.Now())
	require.False(t, ok)
	_, ok = in.Start(None, time.Now())
	require.False(t, ok)
}

func TestPlayCompletes(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = time.Millisecond
	in := New(cfg)
	var frames []Frame
	got, err := in.Play(context.Background(), Keep, func(f Frame) { frames = append(frames, f) })
	require.NoError(t, err)
	require.Equal(t, Keep, got)
	require.NotEmpty(t, frames)
	require.True(t, frames[len(frames)-1].Done)
	require.Zero(t, in.Offset())
}

func TestPlayCancelledByContext(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = time.Hour
	in := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got Intent
	var err error
	go func() {
		got, err = in.Play(ctx, Drop, nil)
		close(done)
	}()
	require.Eventually(t, in.InFlight, time.Second, time.Millisecond)
	cancel()
	<-done
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, None, got)
	require.False(t, in.InFlight())
	require.Zero(t, in.Offset())
}

func TestPlayBusy(t *testing.T) {
	in := New(testConfig())
	_, ok := in.Start(Keep, time.Now())
	require.True(t, ok)
	_, err := in.Play(context.Background(), Drop, nil)
	require.ErrorIs(t, err, ErrBusy)
}

func TestIndicatorAndTint(t *testing.T) {
	in := New(testConfig())
	require.Equal(t, 1.0, in.Tint(400))
	require.Equal(t, -1.0, in.Tint(-400))
	require.Equal(t, 0.5, in.Tint(75))

	keep, drop := Indicator(100)
	require.InDelta(t, 0.5, keep, 1e-9)
	require.Zero(t, drop)
	keep, drop = Indicator(-200)
	require.Zero(t, keep)
	require.Equal(t, 1.0, drop)
}
