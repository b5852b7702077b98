package svomarch

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// RenderConfig collects everything the offline renderer and the viewer need
// to produce a frame. Zero values are filled in by DefaultRenderConfig; a
// TOML file overrides selectively.
type RenderConfig struct {
	Render RenderSettings `toml:"render"`
	Camera CameraSettings `toml:"camera"`
	Shade  ShadeSettings  `toml:"shade"`
}

type RenderSettings struct {
	Width   int `toml:"width"`
	Height  int `toml:"height"`
	Workers int `toml:"workers"` // 0 means runtime.NumCPU
	Tile    int `toml:"tile"`
	SSAA    int `toml:"ssaa"`
}

type CameraSettings struct {
	Eye         [3]float32 `toml:"eye"`
	LookAt      [3]float32 `toml:"look_at"`
	FovDegrees  float32    `toml:"fov_degrees"`
	Near        float32    `toml:"near"`
	Speed       float32    `toml:"speed"`
	Sensitivity float32    `toml:"sensitivity"`
}

type ShadeSettings struct {
	Color [4]float32 `toml:"color"`
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Render: RenderSettings{
			Width:   1280,
			Height:  720,
			Workers: 0,
			Tile:    64,
			SSAA:    1,
		},
		Camera: CameraSettings{
			Eye:         [3]float32{1.6, 1.2, 1.6},
			LookAt:      [3]float32{0.5, 0.5, 0.5},
			FovDegrees:  90,
			Near:        0.05,
			Speed:       1.5,
			Sensitivity: 0.003,
		},
		Shade: ShadeSettings{
			Color: [4]float32{1, 1, 1, 1},
		},
	}
}

// LoadRenderConfig reads a TOML file over the defaults.
func LoadRenderConfig(path string) (RenderConfig, error) {
	cfg := DefaultRenderConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *RenderConfig) Validate() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size %dx%d must be positive", c.Render.Width, c.Render.Height)
	}
	if c.Render.Tile <= 0 {
		return fmt.Errorf("tile size %d must be positive", c.Render.Tile)
	}
	if c.Render.SSAA < 1 || c.Render.SSAA > 4 {
		return fmt.Errorf("ssaa %d out of range [1,4]", c.Render.SSAA)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Render.Workers)
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		return fmt.Errorf("fov %.1f out of range (0,180)", c.Camera.FovDegrees)
	}
	if c.Camera.Near <= 0 {
		return fmt.Errorf("near plane %g must be positive", c.Camera.Near)
	}
	return nil
}
