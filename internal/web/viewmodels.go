package web

import (
	"avatarstudio/internal/avatar"
	"avatarstudio/internal/display"
	"avatarstudio/internal/intake"
	"avatarstudio/internal/lighting"
	"avatarstudio/internal/mesh"
	"avatarstudio/internal/session"
	"avatarstudio/internal/texture"
)

// EditorView is the editor state returned by the settings endpoints. The
// photo data URL is reduced to a flag.
type EditorView struct {
	Settings avatar.Settings `json:"settings"`
	Lighting avatar.Lighting `json:"lighting"`
	Texture  texture.Tuning  `json:"texture"`
	HasPhoto bool            `json:"hasPhoto"`
	Model    *intake.Model   `json:"model,omitempty"`
	LoadedID string          `json:"loadedId,omitempty"`
}

func editorView(ed session.Editor) EditorView {
	return EditorView{
		Settings: ed.Settings,
		Lighting: ed.Lighting,
		Texture:  ed.Texture,
		HasPhoto: ed.Photo != "",
		Model:    ed.Model,
		LoadedID: ed.LoadedID,
	}
}

// SceneView is what a 3D client needs to draw the avatar.
type SceneView struct {
	Scene mesh.Scene    `json:"scene"`
	Rig   lighting.Rig  `json:"rig"`
	Model *intake.Model `json:"model,omitempty"`
}

func sceneView(ed session.Editor) SceneView {
	return SceneView{
		Scene: mesh.Build(ed.Settings),
		Rig:   lighting.NewRig(ed.Lighting),
		Model: ed.Model,
	}
}

// View is the probe-dependent preview payload.
type View struct {
	Mode      display.Mode    `json:"mode"`
	Reason    string          `json:"reason,omitempty"`
	Scene     *SceneView      `json:"scene,omitempty"`
	Schematic *display.Layout `json:"schematic,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

func makeView(c display.Capability, ed session.Editor) View {
	v := View{Mode: c.Mode(), Reason: c.Reason}
	if c.ThreeD {
		sv := sceneView(ed)
		v.Scene = &sv
		return v
	}
	l := display.Schematic(ed.Settings)
	v.Schematic = &l
	v.ImageURL = "/api/schematic.png"
	return v
}

// ShellData feeds the HTML shell.
type ShellData struct {
	View     View
	Settings avatar.Settings
	Catalog  *avatar.Catalog
}
