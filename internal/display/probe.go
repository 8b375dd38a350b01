// Package display decides how the editor preview is shown and draws the 2D
// schematic used when the browser cannot render 3D.
package display

import (
	"net/http"
	"strings"
)

// Mode is the preview mode chosen for a request.
type Mode string

const (
	ModeThreeD    Mode = "3d"
	ModeSchematic Mode = "schematic"
)

// CapabilityHeader carries the client's own WebGL probe result.
const CapabilityHeader = "X-Render-Capability"

// Capability is the outcome of the rendering probe.
type Capability struct {
	ThreeD bool   `json:"threeD"`
	Reason string `json:"reason,omitempty"`
}

// Mode returns the preview mode implied by c.
func (c Capability) Mode() Mode {
	if c.ThreeD {
		return ModeThreeD
	}
	return ModeSchematic
}

// Prober chooses a preview mode per request.
type Prober struct {
	// ForceFallback disables 3D for every client.
	ForceFallback bool
}

// Probe inspects the renderer query parameter, then the capability header.
// Clients that report nothing are assumed to support 3D.
func (p Prober) Probe(r *http.Request) Capability {
	if p.ForceFallback {
		return Capability{Reason: "3D preview disabled by configuration"}
	}
	if v := r.URL.Query().Get("renderer"); v != "" {
		return classify(v, "renderer parameter")
	}
	if v := r.Header.Get(CapabilityHeader); v != "" {
		return classify(v, "client probe")
	}
	return Capability{ThreeD: true}
}

func classify(v, source string) Capability {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "webgl", "webgl2", "webgpu", "3d", "available":
		return Capability{ThreeD: true}
	default:
		return Capability{Reason: "3D rendering unavailable (" + source + ": " + v + ")"}
	}
}
