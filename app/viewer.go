// Package app runs the interactive viewer. Frames render on the CPU
// pipeline, then get uploaded to a webgpu texture and blitted onto the
// window surface with a fullscreen triangle.
package app

import (
	"context"
	_ "embed"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	svomarch "github.com/svomarch/svomarch"
	"github.com/svomarch/svomarch/core"
	"github.com/svomarch/svomarch/render"
)

//go:embed fullscreen.wgsl
var fullscreenWGSL string

// Options configure a Viewer beyond its window and stores.
type Options struct {
	Camera   *core.CameraState
	Params   core.FrameParams // world_to_screen and camera position are set per frame
	FovY     float32          // radians
	Near     float32
	Workers  int
	TileSize int
	Log      svomarch.Logger
}

type Viewer struct {
	Window *glfw.Window

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	config   *wgpu.SurfaceConfiguration

	blitPipeline *wgpu.RenderPipeline
	sampler      *wgpu.Sampler
	frameTex     *wgpu.Texture
	frameView    *wgpu.TextureView
	blitBG       *wgpu.BindGroup

	stores render.Stores
	opts   Options
	fb     *render.Framebuffer
	camera *core.CameraState
	params core.FrameParams
	log    svomarch.Logger

	mouseCaptured bool
	lastX, lastY  float64
	lastTime      float64

	title      string
	frameCount int
	fpsTime    float64
}

func NewViewer(window *glfw.Window, stores render.Stores, opts Options) *Viewer {
	if opts.FovY == 0 {
		opts.FovY = mgl32.DegToRad(90)
	}
	if opts.Near == 0 {
		opts.Near = 0.05
	}
	if opts.Camera == nil {
		opts.Camera = core.NewCameraState()
	}
	log := opts.Log
	if log == nil {
		log = svomarch.NewNopLogger()
	}
	return &Viewer{
		Window: window,
		stores: stores,
		opts:   opts,
		camera: opts.Camera,
		params: opts.Params,
		log:    log,
		title:  "svomarch",
	}
}

func (v *Viewer) Init() error {
	v.instance = wgpu.CreateInstance(nil)
	v.surface = v.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(v.Window))

	adapter, err := v.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: v.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	v.adapter = adapter

	v.device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	v.queue = v.device.GetQueue()

	width, height := v.Window.GetFramebufferSize()
	caps := v.surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	v.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	v.surface.Configure(adapter, v.device, v.config)

	blitModule, err := v.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Fullscreen VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fullscreenWGSL},
	})
	if err != nil {
		return fmt.Errorf("create blit shader: %w", err)
	}

	v.blitPipeline, err = v.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     blitModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     blitModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create blit pipeline: %w", err)
	}

	v.sampler, err = v.device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	if err := v.setupFrameTexture(width, height); err != nil {
		return err
	}

	v.lastTime = glfw.GetTime()
	v.fpsTime = v.lastTime
	return nil
}

// setupFrameTexture (re)allocates the CPU framebuffer and its upload
// texture at the given size.
func (v *Viewer) setupFrameTexture(w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	if v.frameTex != nil {
		v.frameTex.Release()
	}

	v.fb = render.NewFramebuffer(w, h)

	var err error
	v.frameTex, err = v.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Frame Tex",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("create frame texture: %w", err)
	}
	v.frameView, err = v.frameTex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create frame view: %w", err)
	}

	v.blitBG, err = v.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: v.blitPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: v.frameView},
			{Binding: 1, Sampler: v.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create blit bind group: %w", err)
	}
	return nil
}

func (v *Viewer) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	v.config.Width = uint32(w)
	v.config.Height = uint32(h)
	v.surface.Configure(v.adapter, v.device, v.config)
	if err := v.setupFrameTexture(w, h); err != nil {
		v.log.Errorf("resize to %dx%d: %v", w, h, err)
	}
}

// Update advances the camera from input state and refreshes the per-frame
// params.
func (v *Viewer) Update() {
	now := glfw.GetTime()
	dt := float32(now - v.lastTime)
	v.lastTime = now

	var move mgl32.Vec3
	if v.Window.GetKey(glfw.KeyW) == glfw.Press {
		move[2] += 1
	}
	if v.Window.GetKey(glfw.KeyS) == glfw.Press {
		move[2] -= 1
	}
	if v.Window.GetKey(glfw.KeyA) == glfw.Press {
		move[0] -= 1
	}
	if v.Window.GetKey(glfw.KeyD) == glfw.Press {
		move[0] += 1
	}
	if v.Window.GetKey(glfw.KeySpace) == glfw.Press {
		move[1] += 1
	}
	if v.Window.GetKey(glfw.KeyLeftControl) == glfw.Press {
		move[1] -= 1
	}
	if move.Len() > 0 {
		step := v.camera.Speed * dt
		dir := v.camera.GetForward().Mul(move.Z()).
			Add(v.camera.GetRight().Mul(move.X())).
			Add(mgl32.Vec3{0, move.Y(), 0})
		v.camera.Position = v.camera.Position.Add(dir.Normalize().Mul(step))
	}

	aspect := float32(v.config.Width) / float32(v.config.Height)
	if aspect == 0 {
		aspect = 1
	}
	proj := core.PerspectiveReverseZ(v.opts.FovY, aspect, v.opts.Near)
	v.params.WorldToScreen = proj.Mul4(v.camera.GetViewMatrix())
	v.params.CameraPosition = v.camera.Position
}

// Render culls, draws the frame on the CPU, uploads it and presents.
func (v *Viewer) Render() {
	if v.fb == nil {
		return
	}

	planes := core.ExtractFrustum(v.params.WorldToScreen)
	stores := v.stores
	stores.Visibility = core.CullInstances(stores.Instances, planes)

	pipe, err := render.NewPipeline(stores, render.Options{
		Indexing: render.IndexVisibility,
		Workers:  v.opts.Workers,
		TileSize: v.opts.TileSize,
	})
	if err != nil {
		v.log.Errorf("build pipeline: %v", err)
		return
	}

	v.fb.Clear(mgl32.Vec4{0, 0, 0, 1})
	if err := pipe.Draw(context.Background(), v.fb, v.params); err != nil {
		v.log.Errorf("draw: %v", err)
		return
	}

	nextTexture, err := v.surface.GetCurrentTexture()
	if err != nil {
		v.log.Errorf("get current texture: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		v.log.Errorf("create view: %v", err)
		return
	}
	defer view.Release()

	img := v.fb.Image()
	err = v.queue.WriteTexture(
		v.frameTex.AsImageCopy(),
		img.Pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(v.fb.Width) * 4,
			RowsPerImage: uint32(v.fb.Height),
		},
		&wgpu.Extent3D{Width: uint32(v.fb.Width), Height: uint32(v.fb.Height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		v.log.Errorf("upload frame: %v", err)
		return
	}

	encoder, err := v.device.CreateCommandEncoder(nil)
	if err != nil {
		v.log.Errorf("create encoder: %v", err)
		return
	}

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rPass.SetPipeline(v.blitPipeline)
	rPass.SetBindGroup(0, v.blitBG, nil)
	rPass.Draw(3, 1, 0, 0)
	if err := rPass.End(); err != nil {
		v.log.Errorf("render pass: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		v.log.Errorf("encoder finish: %v", err)
		return
	}
	v.queue.Submit(cmd)
	v.surface.Present()

	v.frameCount++
	if now := glfw.GetTime(); now-v.fpsTime >= 1 {
		fps := float64(v.frameCount) / (now - v.fpsTime)
		v.Window.SetTitle(fmt.Sprintf("%s | %.1f fps | %d drawn", v.title, fps, pipe.DrawCount()))
		v.frameCount = 0
		v.fpsTime = now
	}
}

// Run installs input callbacks and spins the frame loop until the window
// closes.
func (v *Viewer) Run() {
	v.Window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		v.Resize(width, height)
	})

	v.Window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		dx := xpos - v.lastX
		dy := ypos - v.lastY
		v.lastX = xpos
		v.lastY = ypos
		if !v.mouseCaptured {
			return
		}
		v.camera.Yaw += float32(dx) * v.camera.Sensitivity
		v.camera.Pitch -= float32(dy) * v.camera.Sensitivity

		limit := float32(math.Pi/2 - 0.01)
		v.camera.Pitch = mgl32.Clamp(v.camera.Pitch, -limit, limit)
	})

	v.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			v.mouseCaptured = !v.mouseCaptured
			if v.mouseCaptured {
				v.lastX, v.lastY = w.GetCursorPos()
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !v.Window.ShouldClose() {
		glfw.PollEvents()
		v.Update()
		v.Render()
	}
}
