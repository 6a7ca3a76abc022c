package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("Y_FRACT", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.YFract != 0.5 {
		t.Errorf("YFract = %v, want 0.5", cfg.YFract)
	}
	if cfg.Interpolator != "linear" || cfg.PanelWidth != 640 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("PANEL_WIDTH", "wide")
	if _, err := Load(); err == nil {
		t.Error("Load accepted a non-numeric panel width")
	}
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: "http://localhost:5173, https://edit.example.com,"}

	if diff := cmp.Diff([]string{"http://localhost:5173", "https://edit.example.com"}, cfg.Origins()); diff != "" {
		t.Errorf("Origins (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"localhost:5173", "edit.example.com"}, cfg.OriginPatterns()); diff != "" {
		t.Errorf("OriginPatterns (-want +got):\n%s", diff)
	}
}
