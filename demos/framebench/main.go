// Framebench runs headless frames on several independent worlds at once and
// reports draw and state-elision counts. Each world is single-threaded; the
// worlds run in parallel on their own goroutines.
//
// Profiling:
// go build ./demos/framebench
// ./framebench -profile cpu
// go tool pprof -http=":8000" ./framebench cpu.pprof
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/phanxgames/juniper"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	worlds := flag.Int("worlds", 4, "independent worlds to run in parallel")
	entities := flag.Int("entities", 5000, "renderable entities per world")
	frames := flag.Int("frames", 300, "frames per world")
	mode := flag.String("profile", "", "profile mode: cpu or mem")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := juniper.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = juniper.LoadConfigFile(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	logger, err := juniper.NewLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	switch *mode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	results := make([]juniper.RenderStats, *worlds)
	start := time.Now()

	var g errgroup.Group
	for i := range *worlds {
		g.Go(func() error {
			stats, err := run(cfg, logger.With(zap.Int("world", i)), *entities, *frames)
			results[i] = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	elapsed := time.Since(start)
	for i, s := range results {
		fmt.Printf("world %d: calls=%d programSwitches=%d bufferElided=%d textureElided=%d uniformElided=%d\n",
			i, s.Calls, s.ProgramSwitches, s.BufferElided, s.TextureElided, s.UniformElided)
	}
	total := *worlds * *frames
	fmt.Printf("%d frames in %v (%.2f ms/frame per world)\n",
		total, elapsed, float64(elapsed.Microseconds())/1000/float64(*frames))
}

// run builds one populated world and drives frames through it, returning
// the stats of the last frame.
func run(cfg juniper.Config, logger *zap.Logger, entities, frames int) (juniper.RenderStats, error) {
	dev := juniper.NewNullDevice()
	rn := juniper.NewRunner(dev, cfg, juniper.WithRunnerLogger(logger))
	defer rn.Shutdown()
	w := rn.World()
	rn.SetSize(1280, 720)

	cam := w.CreateEntity("camera")
	camT := juniper.NewTransformComponent()
	camT.SetTranslation(0, 20, 60)
	camT.LookAt(juniper.Vec3{}, juniper.Vec3{0, 1, 0})
	if err := w.SetComponent(cam, camT); err != nil {
		return juniper.RenderStats{}, err
	}
	if err := w.SetComponent(cam, juniper.NewCameraComponent(juniper.NewCamera(60, 16.0/9, 0.1, 500), true)); err != nil {
		return juniper.RenderStats{}, err
	}
	w.AddToWorld(cam)

	unlit := juniper.NewUnlitShader()
	pulse := juniper.NewPulseShader()
	mats := []*juniper.Material{
		juniper.NewMaterial("red", unlit),
		juniper.NewMaterial("green", unlit),
		juniper.NewMaterial("blue", unlit),
		juniper.NewMaterial("glass", pulse),
	}
	mats[3].Blend = juniper.BlendState{Mode: juniper.BlendAlpha}
	mesh := juniper.NewBox("box", 1, 1, 1)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range entities {
		e := w.CreateEntity(fmt.Sprintf("box%d", i))
		t := juniper.NewTransformComponent()
		t.SetTranslation(rng.Float64()*100-50, rng.Float64()*20-10, rng.Float64()*100-50)
		if err := w.SetComponent(e, t); err != nil {
			return juniper.RenderStats{}, err
		}
		if err := w.SetComponent(e, juniper.NewMeshDataComponent(mesh)); err != nil {
			return juniper.RenderStats{}, err
		}
		if err := w.SetComponent(e, juniper.NewMeshRendererComponent(mats[rng.IntN(len(mats))])); err != nil {
			return juniper.RenderStats{}, err
		}
		w.AddToWorld(e)
	}

	dt := 1.0 / 60
	for range frames {
		camT.AddTranslation(juniper.Vec3{0.05, 0, 0})
		rn.Frame(dt)
	}
	return rn.Renderer().Stats(), nil
}
