package session

import (
	"avatarstudio/internal/avatar"
	"avatarstudio/internal/intake"
	"avatarstudio/internal/texture"
)

// Editor is the live state of one avatar editor.
type Editor struct {
	Settings avatar.Settings `json:"settings"`
	Lighting avatar.Lighting `json:"lighting"`
	Texture  texture.Tuning  `json:"texture"`
	// Photo is the reference photo as a data URL.
	Photo string `json:"photo,omitempty"`
	// Model is the custom .glb shown instead of the generated body.
	Model *intake.Model `json:"model,omitempty"`
	// LoadedID is the saved avatar the editor was last loaded from or
	// saved to.
	LoadedID string `json:"loadedId,omitempty"`
}

// NewEditor returns the state of a fresh editor.
func NewEditor() Editor {
	return Editor{
		Settings: avatar.Default(),
		Lighting: avatar.DefaultLighting(),
		Texture:  texture.DefaultTuning(),
	}
}
