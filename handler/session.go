package handler

import (
	"image"
	"math"
	"net/http"
	"strconv"

	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/session"
	"github.com/gin-gonic/gin"
)

// PNGEncoder 将图像编码为 PNG
type PNGEncoder interface {
	EncodePNG(img image.Image) ([]byte, error)
}

// SessionHandler 通过 HTTP 暴露标注会话
type SessionHandler struct {
	manager    *session.Manager
	newSession func() *session.Session
	png        PNGEncoder
}

func NewSessionHandler(manager *session.Manager, factory func() *session.Session, png PNGEncoder) *SessionHandler {
	return &SessionHandler{
		manager:    manager,
		newSession: factory,
		png:        png,
	}
}

// Register 注册 /sessions 下的路由
func (h *SessionHandler) Register(api *gin.RouterGroup) {
	api.POST("/sessions", h.Create)

	s := api.Group("/sessions/:id")
	s.GET("", h.Status)
	s.DELETE("", h.Close)
	s.GET("/errors", h.Errors)

	s.POST("/load/:idx", h.Load)
	s.POST("/next", h.Next)
	s.POST("/prev", h.Prev)
	s.POST("/save", h.Save)
	s.POST("/dataset", h.SaveDataset)
	s.GET("/categories/:cid/images", h.ImagesByCategory)

	s.POST("/undo", h.Undo)
	s.POST("/redo", h.Redo)
	s.POST("/mode", h.SetMode)
	s.POST("/click", h.Click)

	s.GET("/masks", h.Masks)
	s.POST("/select-rect", h.SelectRect)
	s.POST("/selection/drag", h.DragSelection)
	s.DELETE("/selection", h.ClearSelection)
	s.POST("/selection/delete", h.DeleteSelected)
	s.POST("/selection/category", h.SetSelectedCategory)
	s.POST("/selection/visible", h.SetSelectedVisible)

	s.GET("/categories", h.Categories)
	s.POST("/categories", h.AddCategory)
	s.PUT("/categories/:cid", h.RenameCategory)
	s.DELETE("/categories/:cid", h.RemoveCategory)
	s.POST("/categories/:cid/visible", h.SetCategoryVisible)

	s.POST("/prompt", h.AddPrompt)
	s.POST("/prompt/confirm", h.ConfirmPrompt)
	s.POST("/prompt/undo", h.UndoPrompt)
	s.POST("/prompt/clear", h.ClearPrompts)
	s.POST("/prompt/category", h.SetPromptCategory)

	s.GET("/frame.png", h.Frame)
	s.GET("/layers/:layer", h.Layer)
	s.POST("/view", h.View)

	s.POST("/export", h.StartExport)
	s.GET("/export", h.ExportStatus)
	s.DELETE("/export", h.CancelExport)
	s.POST("/export/images", h.ExportImages)
	s.POST("/export/coco", h.ExportCOCO)
}

func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		fail(c, "会话不存在", err)
		return nil, false
	}
	return s, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		badRequest(c, "参数 "+name+" 必须是整数", err)
		return 0, false
	}
	return v, true
}

// respondStatus 操作成功后返回会话状态
func respondStatus(c *gin.Context, s *session.Session, message string) {
	st, err := s.Status(c.Request.Context())
	if err != nil {
		fail(c, "获取会话状态失败", err)
		return
	}
	ok(c, message, st)
}

type createRequest struct {
	ProjectPath string `json:"project_path"`
}

// Create 创建会话，可选地打开项目
func (h *SessionHandler) Create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "请求格式错误", err)
			return
		}
	}

	s := h.newSession()
	if err := h.manager.Add(s); err != nil {
		_ = s.Close()
		fail(c, "会话数量已达上限", err)
		return
	}
	var list []model.DataPayload
	if req.ProjectPath != "" {
		var err error
		list, err = s.LoadProject(c.Request.Context(), req.ProjectPath)
		if err != nil {
			_ = h.manager.Remove(s.ID())
			fail(c, "打开项目失败", err)
			return
		}
	}

	st, err := s.Status(c.Request.Context())
	if err != nil {
		fail(c, "获取会话状态失败", err)
		return
	}
	c.JSON(http.StatusCreated, model.Response{
		Success: true,
		Message: "会话已创建",
		Data: gin.H{
			"session": st,
			"images":  len(list),
		},
	})
}

func (h *SessionHandler) Status(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	respondStatus(c, s, "ok")
}

func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.manager.Remove(c.Param("id")); err != nil {
		fail(c, "关闭会话失败", err)
		return
	}
	ok(c, "会话已关闭", nil)
}

// Errors 取出累积的异步错误
func (h *SessionHandler) Errors(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	msgs := []string{}
drain:
	for {
		select {
		case err := <-s.Errors():
			msgs = append(msgs, err.Error())
		default:
			break drain
		}
	}
	ok(c, "ok", msgs)
}

func (h *SessionHandler) Load(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	idx, valid := intParam(c, "idx")
	if !valid {
		return
	}
	if err := s.Load(c.Request.Context(), idx); err != nil {
		fail(c, "加载数据失败", err)
		return
	}
	respondStatus(c, s, "数据已加载")
}

func (h *SessionHandler) Next(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.Next(c.Request.Context()); err != nil {
		fail(c, "加载下一张失败", err)
		return
	}
	respondStatus(c, s, "数据已加载")
}

func (h *SessionHandler) Prev(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.Prev(c.Request.Context()); err != nil {
		fail(c, "加载上一张失败", err)
		return
	}
	respondStatus(c, s, "数据已加载")
}

func (h *SessionHandler) Save(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.Save(c.Request.Context()); err != nil {
		fail(c, "保存失败", err)
		return
	}
	respondStatus(c, s, "已保存")
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

func (h *SessionHandler) SaveDataset(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.SaveDataset(c.Request.Context(), req.Path); err != nil {
		fail(c, "保存数据集失败", err)
		return
	}
	ok(c, "数据集已保存", nil)
}

func (h *SessionHandler) ImagesByCategory(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	cid, valid := intParam(c, "cid")
	if !valid {
		return
	}
	ids, err := s.DataIDsByCategory(c.Request.Context(), cid)
	if err != nil {
		fail(c, "查询失败", err)
		return
	}
	ok(c, "ok", ids)
}

func (h *SessionHandler) Undo(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.Undo(c.Request.Context()); err != nil {
		fail(c, "撤销失败", err)
		return
	}
	respondStatus(c, s, "已撤销")
}

func (h *SessionHandler) Redo(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.Redo(c.Request.Context()); err != nil {
		fail(c, "重做失败", err)
		return
	}
	respondStatus(c, s, "已重做")
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (h *SessionHandler) SetMode(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		fail(c, "不支持的模式", err)
		return
	}
	if err := s.SetMode(c.Request.Context(), mode); err != nil {
		fail(c, "切换模式失败", err)
		return
	}
	respondStatus(c, s, "模式已切换")
}

type clickRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button"` // left / right
	Space  string  `json:"space"`  // image（默认）/ screen
}

func (h *SessionHandler) Click(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	button := session.ButtonLeft
	if req.Button == "right" {
		button = session.ButtonRight
	}

	var err error
	if req.Space == "screen" {
		err = s.ClickScreen(c.Request.Context(), req.X, req.Y, button)
	} else {
		err = s.ClickPixel(c.Request.Context(), int(math.Floor(req.X)), int(math.Floor(req.Y)), button)
	}
	if err != nil {
		fail(c, "点击处理失败", err)
		return
	}
	respondStatus(c, s, "ok")
}
