package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"

	svomarch "github.com/svomarch/svomarch"
	"github.com/svomarch/svomarch/app"
	"github.com/svomarch/svomarch/atlas"
	"github.com/svomarch/svomarch/core"
	"github.com/svomarch/svomarch/render"
	"github.com/svomarch/svomarch/volume"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML render settings")
		out        = flag.String("o", "render.png", "output image path")
		window     = flag.Bool("window", false, "open an interactive viewer instead of writing an image")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := svomarch.NewDefaultLogger("svorender", *debug)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: svorender [flags] scene.svo")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := svomarch.DefaultRenderConfig()
	if *configPath != "" {
		var err error
		cfg, err = svomarch.LoadRenderConfig(*configPath)
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}

	svo, err := volume.LoadSvo(flag.Arg(0))
	if err != nil {
		log.Errorf("load svo: %v", err)
		os.Exit(1)
	}
	log.Infof("loaded %s: build %s, %d bricks, %d instances",
		flag.Arg(0), svo.BuildID, len(svo.Bricks), len(svo.Instances))

	field := atlas.Pack(svo.Bricks, svo.BrickSize)
	log.Infof("atlas %d^3 texels, %d mip levels", field.Size, field.Levels())

	camera := core.NewCameraState()
	camera.Speed = cfg.Camera.Speed
	camera.Sensitivity = cfg.Camera.Sensitivity
	camera.LookAt(mgl32.Vec3(cfg.Camera.Eye), mgl32.Vec3(cfg.Camera.LookAt))

	params := core.FrameParams{
		Color:        mgl32.Vec4(cfg.Shade.Color),
		VolumeScale:  field.VolumeScale(),
		CenterToEdge: mgl32.Vec3{0.5, 0.5, 0.5},
		TexelScale:   field.TexelScale(),
		BrickSize:    uint32(field.BrickSize),
	}

	if *window {
		runViewer(svo, field, cfg, params, camera, log)
		return
	}

	if err := renderImage(svo, field, cfg, params, camera, *out, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func renderImage(svo *volume.Svo, field *atlas.Atlas, cfg svomarch.RenderConfig,
	params core.FrameParams, camera *core.CameraState, out string, log svomarch.Logger) error {

	ssaa := cfg.Render.SSAA
	rw := cfg.Render.Width * ssaa
	rh := cfg.Render.Height * ssaa

	proj := core.PerspectiveReverseZ(
		mgl32.DegToRad(cfg.Camera.FovDegrees), float32(rw)/float32(rh), cfg.Camera.Near)
	params.WorldToScreen = proj.Mul4(camera.GetViewMatrix())
	params.CameraPosition = camera.Position

	planes := core.ExtractFrustum(params.WorldToScreen)
	visibility := core.CullInstances(svo.Instances, planes)
	log.Infof("culling kept %d of %d instances", len(visibility), len(svo.Instances))

	pipe, err := render.NewPipeline(
		render.Stores{
			Instances:  svo.Instances,
			Visibility: visibility,
			Nodes:      svo.Nodes,
			Field:      field,
		},
		render.Options{
			Indexing: render.IndexVisibility,
			TileSize: cfg.Render.Tile,
			Workers:  cfg.Render.Workers,
		},
	)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	fb := render.NewFramebuffer(rw, rh)
	fb.Clear(mgl32.Vec4{0, 0, 0, 1})

	start := time.Now()
	if err := pipe.Draw(context.Background(), fb, params); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	log.Infof("drew %d instances at %dx%d in %s", pipe.DrawCount(), rw, rh, time.Since(start))

	img := fb.Image()
	if ssaa > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, cfg.Render.Width, cfg.Render.Height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", out, err)
	}
	log.Infof("wrote %s", out)
	return nil
}

func runViewer(svo *volume.Svo, field *atlas.Atlas, cfg svomarch.RenderConfig,
	params core.FrameParams, camera *core.CameraState, log svomarch.Logger) {

	if err := glfw.Init(); err != nil {
		log.Errorf("glfw init: %v", err)
		os.Exit(1)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Render.Width, cfg.Render.Height, "svomarch", nil, nil)
	if err != nil {
		log.Errorf("create window: %v", err)
		os.Exit(1)
	}
	defer window.Destroy()

	viewer := app.NewViewer(window,
		render.Stores{
			Instances: svo.Instances,
			Nodes:     svo.Nodes,
			Field:     field,
		},
		app.Options{
			Camera:   camera,
			Params:   params,
			FovY:     mgl32.DegToRad(cfg.Camera.FovDegrees),
			Near:     cfg.Camera.Near,
			Workers:  cfg.Render.Workers,
			TileSize: cfg.Render.Tile,
			Log:      log,
		})
	if err := viewer.Init(); err != nil {
		log.Errorf("viewer init: %v", err)
		os.Exit(1)
	}
	viewer.Run()
}
