package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/munzgen/munzgen-agent/internal/db"
	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/library"
	"github.com/munzgen/munzgen-agent/internal/media"
	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/settings"
	"github.com/munzgen/munzgen-agent/internal/studio"
	"github.com/munzgen/munzgen-agent/internal/templates"
)

const testToken = "test-token"

type fakeGenClient struct {
	mu     sync.Mutex
	err    error
	prompt string
}

func (f *fakeGenClient) media(prompt, mime string) (*genai.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &genai.Media{Data: []byte("result-bytes"), MimeType: mime}, nil
}

func (f *fakeGenClient) GenerateVideo(_ context.Context, prompt string, _ *genai.Media, _ genai.Engine) (*genai.Media, error) {
	return f.media(prompt, "video/mp4")
}

func (f *fakeGenClient) GenerateImage(_ context.Context, prompt string) (*genai.Media, error) {
	return f.media(prompt, "image/png")
}

func (f *fakeGenClient) GenerateCharacterAnimation(_ context.Context, character, motion string, _ genai.AnimationOptions) (*genai.Media, error) {
	return f.media(character+" "+motion, "video/mp4")
}

func (f *fakeGenClient) EnhanceScene(_ context.Context, base string, _ genai.EnhanceOptions, _ *genai.Media) (*genai.Media, error) {
	return f.media(base, "video/mp4")
}

func (f *fakeGenClient) GenerateScript(_ context.Context, idea string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "INT. " + strings.ToUpper(idea), nil
}

func (f *fakeGenClient) RouteCommand(_ context.Context, prompt string) genai.Command {
	return genai.FallbackCommand(prompt)
}

type fakeHost struct{}

func (fakeHost) Probe(context.Context) (*settings.HostInfo, error) {
	return &settings.HostInfo{OS: "linux", LogicalCPUs: 8, MemoryTotal: 8 << 30, ProbedAt: time.Now()}, nil
}

type testEnv struct {
	handler http.Handler
	studio  *studio.Studio
	client  *fakeGenClient
	keys    *genai.KeyRing
}

func newTestEnv(t *testing.T, apiKey string, maxUpload int64) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	database, err := db.New(db.Memory, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.SetConfig(ctx, AuthTokenKey, testToken); err != nil {
		t.Fatal(err)
	}

	lib, err := library.New(ctx, database.Conn(), logger)
	if err != nil {
		t.Fatal(err)
	}
	cat, err := templates.Load()
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{client: &fakeGenClient{}, keys: genai.NewKeyRing(apiKey)}
	store := media.NewStore(0)
	env.studio = studio.New(studio.Deps{
		Client:    env.client,
		Keys:      env.keys,
		Media:     store,
		Library:   lib,
		Templates: cat,
		Jobs:      studio.NewJobRepository(database.Conn()),
		Logger:    logger,
	})

	svc, err := settings.New(database, env.keys, settings.NewCachedProbe(fakeHost{}, logger), func() (string, bool) { return "", false }, logger)
	if err != nil {
		t.Fatal(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		env.studio.Run(runCtx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	env.handler = NewRouter(ServerConfig{
		Studio:         env.studio,
		Settings:       svc,
		Tokens:         database,
		MediaServer:    media.NewServer(store, logger),
		MaxUploadBytes: maxUpload,
		Logger:         logger,
		StartTime:      time.Now(),
		Version:        "test",
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) upload(t *testing.T, path, fileName, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func wantCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	wantStatus(t, rr, status)
	if got := decodeJSONBody(t, rr)["code"]; got != code {
		t.Fatalf("code = %v, want %s", got, code)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	wantStatus(t, rr, http.StatusOK)
	if body := decodeJSONBody(t, rr); body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
}

func TestProtectedRoutes_RequireLoopbackAndToken(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	wantCode(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")

	req = httptest.NewRequest(http.MethodGet, "/session", nil)
	req.RemoteAddr = "10.1.2.3:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	wantCode(t, rr, http.StatusForbidden, "FORBIDDEN")
}

func TestSessionSnapshotAndModes(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodGet, "/session", nil)
	wantStatus(t, rr, http.StatusOK)
	var snap project.Snapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if len(snap.Tracks) != 4 || snap.ViewMode != project.ViewEditor || snap.ActiveTool != "SELECT" {
		t.Fatalf("snapshot = %+v", snap)
	}

	wantStatus(t, env.do(t, http.MethodPut, "/session/tool", ToolRequest{Tool: "MAGIC_VFX"}), http.StatusOK)
	wantCode(t, env.do(t, http.MethodPut, "/session/tool", ToolRequest{Tool: "BRUSH"}), http.StatusBadRequest, "BAD_REQUEST")
	wantCode(t, env.do(t, http.MethodPut, "/session/view-mode", ViewModeRequest{Mode: "GRID"}), http.StatusBadRequest, "BAD_REQUEST")

	wantStatus(t, env.do(t, http.MethodPut, "/session/view-mode", ViewModeRequest{Mode: project.ViewScript}), http.StatusOK)
	wantCode(t, env.do(t, http.MethodPost, "/session/play", nil), http.StatusConflict, "INVALID_STATE")
}

func TestSeek(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodPost, "/session/seek", map[string]float64{"time": 45})
	wantStatus(t, rr, http.StatusOK)
	if got := decodeJSONBody(t, rr)["current_time"]; got != 30.0 {
		t.Fatalf("current_time = %v, want 30", got)
	}

	rr = env.do(t, http.MethodPost, "/session/seek", map[string]float64{"fraction": 0.5})
	if got := decodeJSONBody(t, rr)["current_time"]; got != 15.0 {
		t.Fatalf("current_time = %v, want 15", got)
	}

	wantCode(t, env.do(t, http.MethodPost, "/session/seek", map[string]any{}), http.StatusBadRequest, "BAD_REQUEST")
}

func TestImportAndServeMedia(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.upload(t, "/session/tracks/t_input_v/clips", "plate.mp4", "video/mp4", []byte("0123456789"), nil)
	wantStatus(t, rr, http.StatusCreated)
	var clip project.Clip
	json.Unmarshal(rr.Body.Bytes(), &clip)
	if clip.Kind != project.MediaVideo || !strings.HasPrefix(clip.URL, media.URLPrefix) {
		t.Fatalf("clip = %+v", clip)
	}
	if got := env.studio.Session().Status(); got != "Imported plate.mp4" {
		t.Errorf("status = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, clip.URL, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Range", "bytes=2-5")
	mr := httptest.NewRecorder()
	env.handler.ServeHTTP(mr, req)
	wantStatus(t, mr, http.StatusPartialContent)
	if mr.Body.String() != "2345" {
		t.Fatalf("range body = %q", mr.Body.String())
	}

	audio := env.upload(t, "/session/tracks/t_input_a/clips", "score.wav", "application/octet-stream", []byte("RIFF....WAVE"), nil)
	wantStatus(t, audio, http.StatusCreated)
	if got := decodeJSONBody(t, audio)["type"]; got != "audio" {
		t.Errorf("audio clip type = %v", got)
	}

	wantCode(t, env.upload(t, "/session/tracks/nope/clips", "x.mp4", "video/mp4", []byte("x"), nil), http.StatusNotFound, "NOT_FOUND")

	wantStatus(t, env.do(t, http.MethodDelete, "/session/tracks/t_input_v/clips", nil), http.StatusNoContent)
	mr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, clip.URL, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	env.handler.ServeHTTP(mr, req)
	wantStatus(t, mr, http.StatusNotFound)
}

func TestImport_TooLarge(t *testing.T) {
	env := newTestEnv(t, "key", 256)

	rr := env.upload(t, "/session/tracks/t1/clips", "big.mp4", "video/mp4", bytes.Repeat([]byte("x"), 1024), nil)
	wantCode(t, rr, http.StatusRequestEntityTooLarge, "TOO_LARGE")
}

func TestMasking(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodPost, "/session/masking/points", MaskPointRequest{X: 0.5, Y: 0.5})
	if decodeJSONBody(t, rr)["added"] != false {
		t.Fatal("point added without a masking mode")
	}

	wantStatus(t, env.do(t, http.MethodPut, "/session/masking", MaskingRequest{Mode: project.MaskInclude}), http.StatusOK)
	rr = env.do(t, http.MethodPost, "/session/masking/points", MaskPointRequest{X: 1.4, Y: -0.2})
	var resp MaskPointResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.Added || resp.Point.X != 1 || resp.Point.Y != 0 {
		t.Fatalf("response = %+v", resp)
	}

	wantStatus(t, env.do(t, http.MethodDelete, "/session/masking/points", nil), http.StatusNoContent)
	if n := len(env.studio.Session().MaskPoints()); n != 0 {
		t.Fatalf("mask points = %d", n)
	}
	wantCode(t, env.do(t, http.MethodPut, "/session/masking", MaskingRequest{Mode: "lasso"}), http.StatusBadRequest, "BAD_REQUEST")
}

func TestLayoutResize(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	wantCode(t, env.do(t, http.MethodPost, "/session/layout/drag", DragRequest{X: 10, Y: 10, WindowW: 1600, WindowH: 900}), http.StatusConflict, "INVALID_STATE")

	wantStatus(t, env.do(t, http.MethodPost, "/session/layout/control/resize", nil), http.StatusOK)
	rr := env.do(t, http.MethodPost, "/session/layout/drag", DragRequest{X: 1550, Y: 10, WindowW: 1600, WindowH: 900})
	wantStatus(t, rr, http.StatusOK)
	if got := decodeJSONBody(t, rr)["size"]; got != 200.0 {
		t.Fatalf("size = %v, want 200", got)
	}
	wantStatus(t, env.do(t, http.MethodDelete, "/session/layout/resize", nil), http.StatusOK)

	rr = env.do(t, http.MethodPost, "/session/layout/script/minimize", nil)
	if decodeJSONBody(t, rr)["minimized"] != true {
		t.Fatal("script panel not minimized")
	}
	wantCode(t, env.do(t, http.MethodPost, "/session/layout/script/resize", nil), http.StatusConflict, "INVALID_STATE")
	wantCode(t, env.do(t, http.MethodPost, "/session/layout/sidebar/resize", nil), http.StatusBadRequest, "BAD_REQUEST")
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	wantCode(t, env.do(t, http.MethodPost, "/generate", map[string]any{"tool": "MAGIC_VFX"}), http.StatusBadRequest, "BAD_REQUEST")

	rr := env.do(t, http.MethodPost, "/generate", map[string]any{"tool": "MAGIC_VFX", "prompt": "lava river"})
	wantStatus(t, rr, http.StatusAccepted)
	var job JobResponse
	json.Unmarshal(rr.Body.Bytes(), &job)
	env.studio.Runner().Wait()

	rr = env.do(t, http.MethodGet, "/jobs/"+job.ID, nil)
	wantStatus(t, rr, http.StatusOK)
	json.Unmarshal(rr.Body.Bytes(), &job)
	if job.Status != studio.JobStatusCompleted || !strings.HasPrefix(job.ResultURL, media.URLPrefix) {
		t.Fatalf("job = %+v", job)
	}

	rr = env.do(t, http.MethodGet, "/session/display", nil)
	if body := decodeJSONBody(t, rr); body["source"] != "generated" || body["label"] != "AFTER (Result)" {
		t.Fatalf("display = %v", body)
	}

	rr = env.do(t, http.MethodGet, "/jobs", nil)
	if jobs := decodeJSONBody(t, rr)["jobs"].([]interface{}); len(jobs) != 1 {
		t.Fatalf("jobs = %d", len(jobs))
	}
	wantCode(t, env.do(t, http.MethodGet, "/jobs/missing", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestGenerate_InvalidReference(t *testing.T) {
	env := newTestEnv(t, "key", 0)
	rr := env.do(t, http.MethodPost, "/generate", map[string]any{
		"tool":            "MAGIC_VFX",
		"prompt":          "rain",
		"reference_image": "data:image/png;base64,bm90IGFuIGltYWdl",
	})
	wantCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")
}

func TestGenerate_RequiresKey(t *testing.T) {
	env := newTestEnv(t, "", 0)

	rr := env.do(t, http.MethodPost, "/generate", map[string]any{"tool": "MAGIC_VFX", "prompt": "lava"})
	wantCode(t, rr, http.StatusPreconditionRequired, "API_KEY_REQUIRED")

	rr = env.do(t, http.MethodGet, "/status", nil)
	body := decodeJSONBody(t, rr)
	if body["has_api_key"] != false || body["status_line"] != studio.StatusWaitingForKey {
		t.Fatalf("status = %v", body)
	}

	wantStatus(t, env.do(t, http.MethodPut, "/settings/api", SaveAPIKeyRequest{Provider: "Stability AI Cloud", Key: " k-123 "}), http.StatusOK)
	wantStatus(t, env.do(t, http.MethodPost, "/generate", map[string]any{"tool": "MAGIC_VFX", "prompt": "lava"}), http.StatusAccepted)
	env.studio.Runner().Wait()
}

func TestMaterials(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodGet, "/materials?tab=vfx", nil)
	wantStatus(t, rr, http.StatusOK)
	var list MaterialsResponse
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Materials) != 2 {
		t.Fatalf("vfx materials = %d", len(list.Materials))
	}
	wantCode(t, env.do(t, http.MethodGet, "/materials?tab=sounds", nil), http.StatusBadRequest, "BAD_REQUEST")

	rr = env.upload(t, "/materials", "crate.glb", "model/gltf-binary", []byte("glTF"), nil)
	wantStatus(t, rr, http.StatusCreated)
	if body := decodeJSONBody(t, rr); body["type"] != "object" || body["prompt_equivalent"] != "3D Model of crate" {
		t.Fatalf("material = %v", body)
	}

	rr = env.do(t, http.MethodGet, "/materials?q=crate", nil)
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Materials) != 2 || list.Materials[0].Name != "crate" {
		t.Fatalf("search = %+v", list.Materials)
	}

	wantStatus(t, env.do(t, http.MethodPost, "/materials/2/apply", nil), http.StatusAccepted)
	env.studio.Runner().Wait()
	wantCode(t, env.do(t, http.MethodPost, "/materials/nope/apply", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodGet, "/templates", nil)
	var list TemplatesResponse
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Templates) != 4 {
		t.Fatalf("templates = %d", len(list.Templates))
	}

	rr = env.do(t, http.MethodPost, "/templates/social/load", nil)
	wantStatus(t, rr, http.StatusOK)
	var snap project.Snapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if snap.Tracks[0].ID != project.InputVideoTrackID || snap.Tracks[2].ID != "s1" {
		t.Fatalf("tracks = %+v", snap.Tracks)
	}
	wantCode(t, env.do(t, http.MethodPost, "/templates/western/load", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestBridge_NotConfigured(t *testing.T) {
	env := newTestEnv(t, "key", 0)
	wantCode(t, env.do(t, http.MethodGet, "/bridge", nil), http.StatusServiceUnavailable, "UNAVAILABLE")
	wantCode(t, env.do(t, http.MethodPost, "/bridge/connect", nil), http.StatusServiceUnavailable, "UNAVAILABLE")
	wantCode(t, env.do(t, http.MethodGet, "/bridge/qr.png", nil), http.StatusServiceUnavailable, "UNAVAILABLE")
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodGet, "/settings/models", nil)
	if cats := decodeJSONBody(t, rr)["categories"].([]interface{}); len(cats) != 3 {
		t.Fatalf("categories = %d", len(cats))
	}

	wantCode(t, env.do(t, http.MethodPut, "/settings/api", SaveAPIKeyRequest{Provider: "Acme", Key: "x"}), http.StatusBadRequest, "BAD_REQUEST")

	rr = env.do(t, http.MethodGet, "/settings/optimization", nil)
	wantStatus(t, rr, http.StatusOK)
	var opt settings.Optimization
	json.Unmarshal(rr.Body.Bytes(), &opt)
	if !opt.Recommendation.Quantize || !opt.AutoUnload || opt.AggressiveGC {
		t.Fatalf("optimization = %+v", opt)
	}

	on := true
	rr = env.do(t, http.MethodPut, "/settings/optimization", settings.Toggles{AggressiveGC: &on})
	json.Unmarshal(rr.Body.Bytes(), &opt)
	if !opt.AggressiveGC || !opt.AutoUnload {
		t.Fatalf("toggles = %+v", opt)
	}
}

func TestScript(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	wantCode(t, env.do(t, http.MethodPost, "/script", ScriptRequest{Idea: " "}), http.StatusBadRequest, "BAD_REQUEST")
	wantCode(t, env.do(t, http.MethodPost, "/script/use", nil), http.StatusBadRequest, "BAD_REQUEST")

	rr := env.do(t, http.MethodPost, "/script", ScriptRequest{Idea: "heist"})
	wantStatus(t, rr, http.StatusOK)
	if got := decodeJSONBody(t, rr)["script"]; got != "INT. HEIST" {
		t.Fatalf("script = %v", got)
	}

	rr = env.do(t, http.MethodPost, "/script/use", nil)
	wantStatus(t, rr, http.StatusOK)
	var snap project.Snapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if snap.ActiveTool != "MAGIC_VFX" || snap.PromptDraft != "INT. HEIST" {
		t.Fatalf("snapshot = %+v", snap)
	}

	env.client.mu.Lock()
	env.client.err = &genai.APIError{StatusCode: 500, Body: "overloaded"}
	env.client.mu.Unlock()
	wantCode(t, env.do(t, http.MethodPost, "/script", ScriptRequest{Idea: "again"}), http.StatusBadGateway, "UPSTREAM_ERROR")
}

func TestExportEDL(t *testing.T) {
	env := newTestEnv(t, "key", 0)

	rr := env.do(t, http.MethodGet, "/export/edl?project_name=Desert%20Cut", nil)
	wantStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="Desert Cut.edl"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "TITLE: Desert Cut\nFCM: NON-DROP FRAME") {
		t.Fatalf("edl = %q", body)
	}
	if !strings.Contains(body, "* FROM CLIP NAME:  Explosion") || rr.Header().Get("X-Event-Count") != "3" {
		t.Fatalf("edl events missing: %q", body)
	}

	wantCode(t, env.do(t, http.MethodGet, "/export/edl?frame_rate=fast", nil), http.StatusBadRequest, "BAD_REQUEST")

	env.do(t, http.MethodDelete, "/session/tracks/t1/clips", nil)
	env.do(t, http.MethodDelete, "/session/tracks/t2/clips", nil)
	wantCode(t, env.do(t, http.MethodGet, "/export/edl", nil), http.StatusUnprocessableEntity, "EMPTY_TIMELINE")
}

func TestTools(t *testing.T) {
	env := newTestEnv(t, "key", 0)
	rr := env.do(t, http.MethodGet, "/tools?source=open", nil)
	var resp struct {
		Tools   []map[string]string `json:"tools"`
		Modules []map[string]string `json:"modules"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Tools) != 12 || len(resp.Modules) != 4 {
		t.Fatalf("tools = %d, modules = %d", len(resp.Tools), len(resp.Modules))
	}
}
