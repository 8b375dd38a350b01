package web

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"avatarstudio/internal/avatar"
	"avatarstudio/internal/display"
	"avatarstudio/internal/pipeline"
)

func TestSettings_PatchMergesAndClamps(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodGet, "/api/settings", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[EditorView](t, rec).Settings; got != avatar.Default() {
		t.Fatalf("Expected default settings, got %+v", got)
	}

	rec = c.request(http.MethodPatch, "/api/settings", `{"muscle": 80, "height": 999}`)
	expectStatus(t, rec, http.StatusOK)
	got := decode[EditorView](t, rec).Settings
	want := avatar.Default()
	want.Muscle, want.Height = 80, 210
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSettings_InvalidLeavesStateUnchanged(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	c.request(http.MethodPatch, "/api/settings", `{"muscle": 70}`)

	for _, body := range []string{`{"gender": "robot", "muscle": 10}`, `{"muscle": `, ``} {
		rec := c.request(http.MethodPatch, "/api/settings", body)
		expectError(t, rec, http.StatusBadRequest, KindValidation)
	}
	got := decode[EditorView](t, c.request(http.MethodGet, "/api/settings", nil)).Settings
	if got.Muscle != 70 || got.Gender != avatar.Male {
		t.Errorf("Expected settings unchanged after invalid patches, got %+v", got)
	}
}

func TestSettings_SessionsAreIsolated(t *testing.T) {
	srv := testServer(t, 0)
	a, b := newClient(t, srv), newClient(t, srv)
	a.request(http.MethodPatch, "/api/settings", `{"gender": "female"}`)
	got := decode[EditorView](t, b.request(http.MethodGet, "/api/settings", nil)).Settings
	if got.Gender != avatar.Male {
		t.Errorf("Expected other session untouched, got %s", got.Gender)
	}
}

func TestLightingAndTexturePatch(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodPatch, "/api/lighting", `{"ambientIntensity": -2, "shadows": false}`)
	expectStatus(t, rec, http.StatusOK)
	v := decode[EditorView](t, rec)
	if v.Lighting.AmbientIntensity != 0 || v.Lighting.Shadows {
		t.Errorf("Unexpected lighting %+v", v.Lighting)
	}
	if v.Lighting.DirectionalIntensity != 1 {
		t.Errorf("Expected directional intensity kept, got %v", v.Lighting.DirectionalIntensity)
	}

	rec = c.request(http.MethodPatch, "/api/texture", `{"skinDetail": 150}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[EditorView](t, rec).Texture; got.SkinDetail != 100 || got.MuscleIntensity != 50 {
		t.Errorf("Unexpected tuning %+v", got)
	}
}

func TestPresets(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	cat := decode[avatar.Catalog](t, c.request(http.MethodGet, "/api/presets", nil))
	if len(cat.Body) == 0 || len(cat.Lighting) != 3 {
		t.Fatalf("Unexpected catalog %+v", cat)
	}

	c.request(http.MethodPatch, "/api/settings", `{"eyeSize": 90}`)
	rec := c.request(http.MethodPost, "/api/presets/athletic", nil)
	expectStatus(t, rec, http.StatusOK)
	s := decode[EditorView](t, rec).Settings
	if s.Muscle != 72 || s.BodyFat != 12 {
		t.Errorf("Expected athletic body, got %+v", s)
	}
	if s.EyeSize != 90 {
		t.Errorf("Expected face sliders kept, got eye size %d", s.EyeSize)
	}

	rec = c.request(http.MethodPost, "/api/lighting/presets/dramatic", nil)
	expectStatus(t, rec, http.StatusOK)
	if l := decode[EditorView](t, rec).Lighting; l.AmbientIntensity != 0.1 {
		t.Errorf("Expected dramatic ambient 0.1, got %v", l.AmbientIntensity)
	}

	expectError(t, c.request(http.MethodPost, "/api/presets/giant", nil), http.StatusNotFound, KindValidation)
	expectError(t, c.request(http.MethodPost, "/api/lighting/presets/disco", nil), http.StatusNotFound, KindValidation)
}

func TestReset(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	c.request(http.MethodPatch, "/api/settings", `{"muscle": 5, "hairStyle": 4}`)
	c.request(http.MethodPatch, "/api/lighting", `{"shadows": false}`)
	v := decode[EditorView](t, c.request(http.MethodPost, "/api/settings/reset", nil))
	if v.Settings != avatar.Default() || v.Lighting != avatar.DefaultLighting() {
		t.Errorf("Expected defaults after reset, got %+v", v)
	}
}

func TestScene(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	v := decode[SceneView](t, c.request(http.MethodGet, "/api/scene", nil))
	if len(v.Scene.Shapes) == 0 {
		t.Fatal("Expected shapes")
	}
	if !v.Rig.Directional.CastShadow {
		t.Error("Expected default rig to cast shadows")
	}
}

func TestView_ProbeSelectsMode(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	v := decode[View](t, c.request(http.MethodGet, "/api/view", nil))
	if v.Mode != display.ModeThreeD || v.Scene == nil || v.Schematic != nil {
		t.Errorf("Expected 3D view, got %+v", v)
	}

	c.header.Set(display.CapabilityHeader, "unavailable")
	v = decode[View](t, c.request(http.MethodGet, "/api/view", nil))
	if v.Mode != display.ModeSchematic || v.Schematic == nil || v.Scene != nil {
		t.Fatalf("Expected schematic view, got %+v", v)
	}
	if len(v.Schematic.Rects) != 6 || v.Reason == "" {
		t.Errorf("Unexpected schematic %+v", v.Schematic)
	}
}

func TestView_ForcedFallback(t *testing.T) {
	srv := testServer(t, 0)
	srv.Prober.ForceFallback = true
	c := newClient(t, srv)
	c.header.Set(display.CapabilityHeader, "webgl2")
	if v := decode[View](t, c.request(http.MethodGet, "/api/view", nil)); v.Mode != display.ModeSchematic {
		t.Errorf("Expected forced schematic, got %s", v.Mode)
	}
}

func decodePNG(t *testing.T, rec *httptest.ResponseRecorder) image.Image {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Expected image/png, got %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestTexturePNG(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodGet, "/api/texture.png?quality=32&skinDetail=0&vascularization=100", nil)
	expectStatus(t, rec, http.StatusOK)
	if b := decodePNG(t, rec).Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("Expected 32x32 texture, got %v", b)
	}

	rec = c.request(http.MethodGet, "/api/texture.png?quality=1", nil)
	expectStatus(t, rec, http.StatusOK)
	if b := decodePNG(t, rec).Bounds(); b.Dx() != 16 {
		t.Errorf("Expected quality clamped to 16, got %v", b)
	}

	expectError(t, c.request(http.MethodGet, "/api/texture.png?quality=high", nil), http.StatusBadRequest, KindValidation)
	expectError(t, c.request(http.MethodGet, "/api/texture.png?skinDetail=x", nil), http.StatusBadRequest, KindValidation)
}

func TestSchematicPNG(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodGet, "/api/schematic.png", nil)
	expectStatus(t, rec, http.StatusOK)
	decodePNG(t, rec)
}

func multipartUpload(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func glbBytes() []byte {
	return append([]byte("glTF"), make([]byte, 60)...)
}

func TestUploadModel(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.do(multipartUpload(t, "/api/uploads/model", "Knight.GLB", glbBytes()))
	expectStatus(t, rec, http.StatusCreated)
	first := decode[EditorView](t, rec).Model
	if first == nil || first.DisplayName != "Knight" || !strings.HasPrefix(first.URL, "/files/") {
		t.Fatalf("Unexpected model %+v", first)
	}

	rec = c.request(http.MethodGet, first.URL, nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "model/gltf-binary" {
		t.Errorf("Expected model/gltf-binary, got %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), glbBytes()) {
		t.Error("Expected stored bytes to round-trip")
	}

	rec = c.do(multipartUpload(t, "/api/uploads/model", "second.glb", glbBytes()))
	expectStatus(t, rec, http.StatusCreated)
	expectError(t, c.request(http.MethodGet, first.URL, nil), http.StatusNotFound, KindPersistence)

	rec = c.request(http.MethodDelete, "/api/uploads/model", nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[EditorView](t, rec).Model != nil {
		t.Error("Expected model cleared")
	}
}

func TestUploadModel_Rejected(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	tests := []struct {
		name, filename string
		content        []byte
	}{
		{"wrong extension", "model.obj", glbBytes()},
		{"bad magic", "model.glb", []byte("not a gltf file")},
		{"too short", "model.glb", []byte("gl")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(multipartUpload(t, "/api/uploads/model", tt.filename, tt.content))
			expectError(t, rec, http.StatusBadRequest, KindValidation)
		})
	}
	if decode[EditorView](t, c.request(http.MethodGet, "/api/settings", nil)).Model != nil {
		t.Error("Expected no model after rejected uploads")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/model", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	expectError(t, c.do(req), http.StatusBadRequest, KindValidation)
}

func TestUploadPhoto(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{200, 150, 120, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	rec := c.do(multipartUpload(t, "/api/uploads/photo", "me.png", buf.Bytes()))
	expectStatus(t, rec, http.StatusCreated)
	if url := decode[map[string]string](t, rec)["photo"]; !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("Expected PNG data URL, got %.40q", url)
	}
	if !decode[EditorView](t, c.request(http.MethodGet, "/api/settings", nil)).HasPhoto {
		t.Error("Expected photo recorded in editor")
	}

	rec = c.do(multipartUpload(t, "/api/uploads/photo", "notes.txt", []byte("hello there")))
	expectError(t, rec, http.StatusBadRequest, KindValidation)
}

func TestGenerate(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodPost, "/api/generate", nil)
	expectStatus(t, rec, http.StatusAccepted)
	st := decode[pipeline.Status](t, rec)
	want := []string{"analyzing", "building", "texturing", "finalizing"}
	if strings.Join(st.Phases, ",") != strings.Join(want, ",") {
		t.Errorf("Expected phases %v, got %v", want, st.Phases)
	}

	waitJob(t, c, pipeline.Generation)
	rec = c.request(http.MethodGet, "/api/jobs/generation", nil)
	expectStatus(t, rec, http.StatusOK)
	st = decode[pipeline.Status](t, rec)
	if st.State != pipeline.Completed || st.Progress != 100 {
		t.Fatalf("Expected completed job, got %+v", st)
	}
	res, ok := st.Result.(map[string]any)
	if !ok || res["usedPhoto"] != false || res["shapes"].(float64) <= 0 {
		t.Fatalf("Unexpected result %+v", st.Result)
	}
	rec = c.request(http.MethodGet, res["textureUrl"].(string), nil)
	expectStatus(t, rec, http.StatusOK)
	decodePNG(t, rec)
}

func TestExport(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodPost, "/api/exports", `{"format": "obj-3d", "name": "Hero"}`)
	expectStatus(t, rec, http.StatusAccepted)
	st := waitJob(t, c, pipeline.Export)
	if st.State != pipeline.Completed {
		t.Fatalf("Expected completed export, got %+v", st)
	}

	st = decode[pipeline.Status](t, c.request(http.MethodGet, "/api/jobs/export", nil))
	res := st.Result.(map[string]any)
	if res["name"] != "hero-obj-3d.obj" {
		t.Errorf("Expected hero-obj-3d.obj, got %v", res["name"])
	}
	rec = c.request(http.MethodGet, res["url"].(string)+"?download=hero-obj-3d.obj", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "\nv ") {
		t.Error("Expected OBJ text")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "hero-obj-3d.obj") {
		t.Errorf("Expected attachment name, got %q", cd)
	}
}

func TestExport_Validation(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	expectError(t, c.request(http.MethodPost, "/api/exports", `{"format": "gif"}`), http.StatusBadRequest, KindValidation)
	expectError(t, c.request(http.MethodGet, "/api/jobs/render", nil), http.StatusBadRequest, KindValidation)
	expectError(t, c.request(http.MethodGet, "/api/jobs/export", nil), http.StatusNotFound, KindValidation)
	if _, ok := c.srv.Runner.Current(c.sessionID(), pipeline.Export); ok {
		t.Error("Expected no export job for an unknown format")
	}
}

func TestCancelJob(t *testing.T) {
	c := newClient(t, testServer(t, time.Hour))
	expectStatus(t, c.request(http.MethodPost, "/api/generate", nil), http.StatusAccepted)
	rec := c.request(http.MethodDelete, "/api/jobs/generation", nil)
	expectStatus(t, rec, http.StatusOK)
	if st := decode[pipeline.Status](t, rec); st.State != pipeline.Canceled {
		t.Errorf("Expected canceled, got %s", st.State)
	}
}

func TestGenerate_Supersedes(t *testing.T) {
	c := newClient(t, testServer(t, time.Hour))
	first := decode[pipeline.Status](t, c.request(http.MethodPost, "/api/generate", nil))
	second := decode[pipeline.Status](t, c.request(http.MethodPost, "/api/generate", nil))
	st := decode[pipeline.Status](t, c.request(http.MethodGet, "/api/jobs/generation", nil))
	if st.ID != second.ID || st.ID == first.ID {
		t.Errorf("Expected the newest job %s to be current, got %s", second.ID, st.ID)
	}
}
