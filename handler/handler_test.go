package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/annotation/annotationtest"
	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/backend/backendtest"
	"github.com/TIANLI0/reefmask/config"
	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pngEncoder struct{}

func (pngEncoder) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	return buf.Bytes(), err
}

func (e pngEncoder) DataURL(img image.Image) (string, error) {
	data, err := e.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func rect(id, category int, r image.Rectangle) model.Annotation {
	ann := annotationtest.Rect(20, 20, category, r).Annotation()
	ann.ID = id
	return ann
}

func dataPayload(idx int, anns ...model.Annotation) model.DataPayload {
	name := fmt.Sprintf("%d.png", idx)
	return model.DataPayload{
		ImageName: name,
		ImagePath: name,
		Idx:       idx,
		Segmentation: model.SegmentationSet{
			Images:      []model.ImageInfo{{ID: idx, FileName: name, Width: 20, Height: 20}},
			Annotations: anns,
		},
		CategoryInfo: []model.CategoryInfo{{ID: 0, Name: "coral", SuperCategory: "coral"}},
	}
}

type server struct {
	t       *testing.T
	router  *gin.Engine
	manager *session.Manager
	fake    *backendtest.Fake
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fake := &backendtest.Fake{
		Data: []model.DataPayload{
			dataPayload(0, rect(0, 0, image.Rect(2, 2, 8, 8))),
			dataPayload(1),
		},
		CreateMaskFunc: func(ctx context.Context, prompts []model.PromptPoint) (model.Annotation, error) {
			return rect(0, 0, image.Rect(12, 12, 16, 16)), nil
		},
	}
	cfg := config.Default()
	cfg.Viewport.CanvasWidth, cfg.Viewport.CanvasHeight = 40, 30

	manager := session.NewManager(nil, 1)
	t.Cleanup(manager.Close)
	h := NewSessionHandler(manager, func() *session.Session {
		return session.New(cfg, fake, session.WithEncoder(pngEncoder{}))
	}, pngEncoder{})

	r := gin.New()
	h.Register(r.Group("/api/v1"))
	return &server{t: t, router: r, manager: manager, fake: fake}
}

func (s *server) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decode 将响应中的 data 字段解析到 out
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
}

func (s *server) create() string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/sessions", map[string]string{"project_path": "/data/project.json"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Session model.SessionStatus `json:"session"`
		Images  int                 `json:"images"`
	}
	decode(s.t, w, &out)
	assert.Equal(s.t, 2, out.Images)
	return out.Session.ID
}

func (s *server) status(id string) model.SessionStatus {
	s.t.Helper()
	w := s.do(http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(s.t, http.StatusOK, w.Code)
	var st model.SessionStatus
	decode(s.t, w, &st)
	return st
}

func TestCreateAndStatus(t *testing.T) {
	s := newServer(t)
	id := s.create()
	st := s.status(id)
	assert.Equal(t, "0.png", st.ImageName)
	assert.Equal(t, 1, st.Masks)
	assert.Equal(t, "select", st.Mode)
	assert.Equal(t, 1, s.manager.Len())

	w := s.do(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.manager.Len())
}

func TestCreateWithoutProject(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSessionLimit(t *testing.T) {
	s := newServer(t)
	id := s.create()

	// 后端只有一个当前图像，第二个会话被拒绝
	w := s.do(http.MethodPost, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, s.manager.Len())

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/sessions/"+id, nil).Code)
	w = s.do(http.MethodPost, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestFailedCreateReleasesSlot(t *testing.T) {
	s := newServer(t)
	s.fake.Err = errors.New("project missing")
	w := s.do(http.MethodPost, "/api/v1/sessions", map[string]string{"project_path": "/missing.json"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, s.manager.Len())

	s.fake.Err = nil
	s.create()
}

func TestUnknownSession(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, session.ErrSessionNotFound.Error(), resp.Error)
}

func TestClickAndDelete(t *testing.T) {
	s := newServer(t)
	id := s.create()

	w := s.do(http.MethodPost, "/api/v1/sessions/"+id+"/click", map[string]any{"x": 3, "y": 3})
	require.Equal(t, http.StatusOK, w.Code)
	var st model.SessionStatus
	decode(t, w, &st)
	assert.Equal(t, 1, st.Selected)

	w = s.do(http.MethodGet, "/api/v1/sessions/"+id+"/masks", nil)
	var masks []model.MaskSummary
	decode(t, w, &masks)
	require.Len(t, masks, 1)
	assert.True(t, masks[0].Selected)
	assert.Equal(t, "coral", masks[0].Category)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/selection/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.status(id).Masks)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.status(id).Masks)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/undo", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNavigationAndSave(t *testing.T) {
	s := newServer(t)
	id := s.create()

	w := s.do(http.MethodPost, "/api/v1/sessions/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.status(id).Idx)
	assert.Len(t, s.fake.Saved, 1)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/load/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.status(id).Idx)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/load/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/load/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCategories(t *testing.T) {
	s := newServer(t)
	id := s.create()
	base := "/api/v1/sessions/" + id + "/categories"

	w := s.do(http.MethodPost, base, map[string]string{"name": "sand"})
	require.Equal(t, http.StatusOK, w.Code)
	var info model.CategoryInfo
	decode(t, w, &info)
	assert.Equal(t, model.CategoryInfo{ID: 1, Name: "sand", SuperCategory: "sand"}, info)

	w = s.do(http.MethodPost, base, map[string]string{"name": "sand"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPut, base+"/1", map[string]string{"name": "rock"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, base+"/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, base+"/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, base, nil)
	var cats []model.CategoryInfo
	decode(t, w, &cats)
	assert.Equal(t, []model.CategoryInfo{{ID: 1, Name: "rock", SuperCategory: "rock"}}, cats)

	w = s.do(http.MethodGet, "/api/v1/sessions/"+id+"/masks", nil)
	var masks []model.MaskSummary
	decode(t, w, &masks)
	assert.Equal(t, annotation.UndefinedID, masks[0].CategoryID)
}

func TestPromptFlow(t *testing.T) {
	s := newServer(t)
	id := s.create()
	base := "/api/v1/sessions/" + id

	w := s.do(http.MethodPost, base+"/prompt/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, base+"/mode", map[string]string{"mode": "create"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, base+"/mode", map[string]string{"mode": "paint"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/click", map[string]any{"x": 13, "y": 13, "button": "left"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool { return !s.status(id).Pending }, time.Second, 5*time.Millisecond)

	w = s.do(http.MethodPost, base+"/prompt/category", map[string]int{"category_id": 0})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, base+"/prompt/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		MaskID int `json:"mask_id"`
	}
	decode(t, w, &out)
	assert.Equal(t, 1, out.MaskID)
	assert.Equal(t, 2, s.status(id).Masks)
}

func TestFrameAndLayers(t *testing.T) {
	s := newServer(t)
	id := s.create()
	base := "/api/v1/sessions/" + id

	w := s.do(http.MethodGet, base+"/frame.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())

	w = s.do(http.MethodGet, base+"/layers/fill.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	img, err = png.Decode(w.Body)
	require.NoError(t, err)
	_, _, _, a := img.At(4, 4).RGBA()
	assert.NotZero(t, a)

	w = s.do(http.MethodGet, base+"/layers/shadow.png", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestView(t *testing.T) {
	s := newServer(t)
	id := s.create()
	base := "/api/v1/sessions/" + id + "/view"

	var before, after viewState
	decode(t, s.do(http.MethodPost, base, map[string]string{"action": "reset"}), &before)
	decode(t, s.do(http.MethodPost, base, map[string]string{"action": "zoom_in"}), &after)
	assert.Greater(t, after.Scale, before.Scale)

	decode(t, s.do(http.MethodPost, base, map[string]any{"action": "opacity", "value": 0.8}), &after)
	assert.InDelta(t, 0.8, after.Opacity, 1e-9)

	decode(t, s.do(http.MethodPost, base, map[string]any{"action": "show_mask", "show": false}), &after)
	assert.False(t, after.ShowMask)

	w := s.do(http.MethodPost, base, map[string]string{"action": "spin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, base, map[string]any{"action": "resize", "width": 0, "height": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	s := newServer(t)
	id := s.create()
	base := "/api/v1/sessions/" + id + "/export"

	w := s.do(http.MethodPost, base, map[string]string{"output_dir": "out"})
	require.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool {
		var st model.ExportStatus
		decode(t, s.do(http.MethodGet, base, nil), &st)
		return !st.Running && st.Done == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, s.fake.ExportedImages("out"), 2)

	w = s.do(http.MethodPost, base, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/coco", map[string]string{"output_path": "coco.json"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", session.ErrBusy), http.StatusConflict},
		{session.ErrNoCandidate, http.StatusConflict},
		{session.ErrSessionLimit, http.StatusConflict},
		{fmt.Errorf("%w: got 8x8", session.ErrCandidateSize), http.StatusConflict},
		{annotation.ErrUnknownCategory, http.StatusBadRequest},
		{&backend.RemoteError{Text: "cuda oom"}, http.StatusBadGateway},
		{backend.ErrClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
