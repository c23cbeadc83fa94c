package juniper

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNullRunner(mutate func(*Config)) (*Runner, *NullDevice) {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d := NewNullDevice()
	return NewRunner(d, cfg), d
}

func TestRunnerSkipsBadFrames(t *testing.T) {
	rn, _ := newNullRunner(nil)
	assert.False(t, rn.Process(-0.01))
	assert.False(t, rn.Process(1.5))
	assert.Zero(t, rn.Context().Frame)
	assert.Zero(t, rn.Context().Time)

	assert.True(t, rn.Process(1.0))
	assert.Equal(t, uint64(1), rn.Context().Frame)
}

func TestRunnerClampsTimeStep(t *testing.T) {
	rn, _ := newNullRunner(func(c *Config) {
		c.TPFSmoothing = 1
		c.MaxTPF = 0.1
	})
	rn.Process(0.5)
	assert.InDelta(t, 0.1, rn.Context().TPF, 1e-12)
	rn.Process(0)
	assert.InDelta(t, minTPF, rn.Context().TPF, 1e-12)
	assert.InDelta(t, 0.1+minTPF, rn.Context().Time, 1e-12)
}

func TestRunnerSmoothsTimeStep(t *testing.T) {
	rn, _ := newNullRunner(func(c *Config) { c.TPFSmoothing = 3 })
	rn.Process(0.01)
	assert.InDelta(t, 0.01, rn.Context().TPF, 1e-12)
	rn.Process(0.02)
	rn.Process(0.03)
	assert.InDelta(t, 0.02, rn.Context().TPF, 1e-12)
	rn.Process(0.06)
	assert.InDelta(t, (0.02+0.03+0.06)/3, rn.Context().TPF, 1e-12)
}

func TestRunnerCallbackOrder(t *testing.T) {
	rn, _ := newNullRunner(nil)
	var order []string
	rn.AddPreProcess(func(float64) { order = append(order, "preProcess") })
	rn.AddPreRender(func(float64) { order = append(order, "preRender") })
	rn.AddPostRender(func(float64) { order = append(order, "postRender") })
	rn.RunNextFrame(func(float64) {
		order = append(order, "next")
		rn.RunNextFrame(func(float64) { order = append(order, "deferred") })
	})

	rn.Frame(0.016)
	assert.Equal(t, []string{"next", "preProcess", "preRender", "postRender"}, order)

	order = nil
	rn.Frame(0.016)
	assert.Equal(t, []string{"deferred", "preProcess", "preRender", "postRender"}, order)

	order = nil
	rn.Frame(0.016)
	assert.Equal(t, []string{"preProcess", "preRender", "postRender"}, order)
}

func TestRunnerCallbackPanicInSafeMode(t *testing.T) {
	rn, _ := newNullRunner(nil)
	var events []ErrorEvent
	Subscribe(rn.Bus(), func(ev ErrorEvent) { events = append(events, ev) })
	ran := false
	rn.AddPreProcess(func(float64) { panic("broken callback") })
	rn.AddPreProcess(func(float64) { ran = true })

	rn.Frame(0.016)
	assert.True(t, ran, "later callbacks still run")
	require.Len(t, events, 1)
	assert.Equal(t, "callback", events[0].Source)
	assert.Contains(t, events[0].Err.Error(), "preProcess callback")
}

func TestRunnerCallbackPanicWithoutSafeMode(t *testing.T) {
	rn, _ := newNullRunner(func(c *Config) { c.SafeMode = false })
	rn.AddPostRender(func(float64) { panic("broken callback") })
	assert.Panics(t, func() { rn.Frame(0.016) })
}

func TestRunnerDrawsScene(t *testing.T) {
	rn, d := newNullRunner(func(c *Config) { c.Partitioner = "frustum" })
	w := rn.World()

	cam := w.CreateEntity("camera")
	require.NoError(t, w.SetComponent(cam, NewTransformComponent()))
	require.NoError(t, w.SetComponent(cam, NewCameraComponent(NewCamera(60, 1, 0.1, 100), true)))
	w.AddToWorld(cam)

	mat := NewMaterial("m", testShader("lit"))
	for i, z := range []float64{-5, -10, 10} {
		e := w.CreateEntity("box")
		tc := NewTransformComponent()
		tc.SetTranslation(float64(i), 0, z)
		require.NoError(t, w.SetComponent(e, tc))
		require.NoError(t, w.SetComponent(e, NewMeshDataComponent(NewBox("box", 1, 1, 1))))
		require.NoError(t, w.SetComponent(e, NewMeshRendererComponent(mat)))
		w.AddToWorld(e)
	}

	var frames []FrameEvent
	Subscribe(rn.Bus(), func(ev FrameEvent) { frames = append(frames, ev) })
	rn.Frame(0.016)

	require.Len(t, frames, 1)
	assert.Equal(t, uint64(1), frames[0].Frame)
	assert.Equal(t, 2, frames[0].Stats.Calls)
	assert.Equal(t, 2, d.Stats.DrawCalls)
	assert.Equal(t, 24, d.Stats.Primitives)
	assert.Equal(t, 1, d.Stats.ProgramCreates)
	assert.Equal(t, 1, d.Stats.Clears)
	assert.Len(t, rn.RenderSystem().RenderList(), 2)
	assert.NotNil(t, rn.CameraSystem().MainCamera())
}

func TestRunnerSnapshot(t *testing.T) {
	rn, _ := newNullRunner(func(c *Config) { c.ClearColor = Color{1, 0, 0, 1} })
	rn.SetSize(4, 2)

	var got *image.NRGBA
	var gotErr error
	calls := 0
	rn.TakeSnapshot(func(img *image.NRGBA, err error) {
		calls++
		got, gotErr = img, err
	})
	rn.Frame(0.016)
	rn.Frame(0.016)

	assert.Equal(t, 1, calls, "snapshot requests resolve once")
	require.NoError(t, gotErr)
	require.NotNil(t, got)
	assert.Equal(t, image.Rect(0, 0, 4, 2), got.Bounds())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, got.NRGBAAt(3, 1))
}

func TestRunnerSnapshotUnsupported(t *testing.T) {
	rn := NewRunner(newRecordDevice(), DefaultConfig())
	var gotErr error
	rn.TakeSnapshot(func(_ *image.NRGBA, err error) { gotErr = err })
	rn.Frame(0.016)
	assert.ErrorIs(t, gotErr, ErrSnapshotUnsupported)
}

func TestRunnerScreenshot(t *testing.T) {
	rn, _ := newNullRunner(nil)
	rn.SnapshotDir = t.TempDir()
	rn.SetSize(2, 2)
	rn.Screenshot("first shot")
	rn.Frame(0.016)

	matches, err := filepath.Glob(filepath.Join(rn.SnapshotDir, "*_first_shot.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRunnerShutdown(t *testing.T) {
	rn, _ := newNullRunner(nil)
	frames := 0
	Subscribe(rn.Bus(), func(FrameEvent) { frames++ })
	called := false
	rn.AddPreProcess(func(float64) { called = true })

	rn.Shutdown()
	assert.True(t, rn.Stopped())
	rn.Frame(0.016)
	assert.False(t, called)
	assert.Zero(t, frames)
}

func TestRunnerTransparentFromConfig(t *testing.T) {
	rn, _ := newNullRunner(func(c *Config) { c.TransparentFrom = 1500 })
	assert.Equal(t, 1500, rn.RenderSystem().Queue().TransparentFrom)
}

func BenchmarkRunnerFrame(b *testing.B) {
	rn, _ := newNullRunner(func(c *Config) { c.Partitioner = "frustum" })
	w := rn.World()
	cam := w.CreateEntity("camera")
	_ = w.SetComponent(cam, NewTransformComponent())
	_ = w.SetComponent(cam, NewCameraComponent(NewCamera(60, 1, 0.1, 1000), true))
	w.AddToWorld(cam)

	mats := []*Material{
		NewMaterial("a", testShader("lit")),
		NewMaterial("b", testShader("unlit")),
	}
	mesh := NewBox("box", 1, 1, 1)
	for i := 0; i < 1000; i++ {
		e := w.CreateEntity("box")
		tc := NewTransformComponent()
		tc.SetTranslation(float64(i%40)-20, float64(i/40%25)-12, -float64(10+i%50))
		_ = w.SetComponent(e, tc)
		_ = w.SetComponent(e, NewMeshDataComponent(mesh))
		_ = w.SetComponent(e, NewMeshRendererComponent(mats[i%len(mats)]))
		w.AddToWorld(e)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rn.Frame(1.0 / 60)
	}
}
