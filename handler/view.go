package handler

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/TIANLI0/reefmask/compositor"
	"github.com/gin-gonic/gin"
)

var errUnknownAction = errors.New("unknown view action")

func (h *SessionHandler) writePNG(c *gin.Context, img image.Image) {
	data, err := h.png.EncodePNG(img)
	if err != nil {
		fail(c, "编码图像失败", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

// Frame 合成当前画面
func (h *SessionHandler) Frame(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	img, err := s.Frame(c.Request.Context())
	if err != nil {
		fail(c, "渲染失败", err)
		return
	}
	h.writePNG(c, img)
}

// Layer 返回 fill / border / text 图层，可带 .png 后缀
func (h *SessionHandler) Layer(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	name := strings.TrimSuffix(c.Param("layer"), ".png")
	img, err := s.Layer(c.Request.Context(), name)
	if err != nil {
		fail(c, "获取图层失败", err)
		return
	}
	h.writePNG(c, img)
}

type viewRequest struct {
	Action string  `json:"action" binding:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Delta  float64 `json:"delta"`
	Value  float64 `json:"value"`
	Show   bool    `json:"show"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

type viewState struct {
	Scale    float64 `json:"scale"`
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	Opacity  float64 `json:"opacity"`
	ShowMask bool    `json:"show_mask"`
}

func applyView(cp *compositor.Compositor, req viewRequest) error {
	v := cp.Viewport()
	switch req.Action {
	case "zoom_in":
		v.ZoomIn()
	case "zoom_out":
		v.ZoomOut()
	case "reset":
		v.Reset()
	case "wheel":
		v.Wheel(req.X, req.Y, req.Delta)
	case "drag_start":
		v.BeginDrag(req.X, req.Y)
	case "drag":
		v.DragTo(req.X, req.Y)
	case "drag_end":
		v.EndDrag()
	case "opacity":
		cp.SetOpacity(req.Value)
	case "show_mask":
		cp.SetShouldShowMask(req.Show)
	case "resize":
		if req.Width <= 0 || req.Height <= 0 {
			return fmt.Errorf("invalid canvas size %dx%d", req.Width, req.Height)
		}
		return cp.Resize(req.Width, req.Height)
	default:
		return fmt.Errorf("%q: %w", req.Action, errUnknownAction)
	}
	return nil
}

// View 视口与显示设置
func (h *SessionHandler) View(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}

	var state viewState
	var actionErr error
	err := s.View(c.Request.Context(), func(cp *compositor.Compositor) error {
		if actionErr = applyView(cp, req); actionErr != nil {
			return actionErr
		}
		v := cp.Viewport()
		state = viewState{
			Scale:    v.Scale,
			OriginX:  v.Origin.X,
			OriginY:  v.Origin.Y,
			Opacity:  cp.Opacity(),
			ShowMask: cp.ShouldShowMask(),
		}
		return nil
	})
	if actionErr != nil {
		badRequest(c, "视图操作无效", actionErr)
		return
	}
	if err != nil {
		fail(c, "视图操作失败", err)
		return
	}
	ok(c, "ok", state)
}
