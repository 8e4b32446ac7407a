package handler

import (
	"image"

	"github.com/TIANLI0/reefmask/model"
	"github.com/gin-gonic/gin"
)

func (h *SessionHandler) Masks(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	masks, err := s.Masks(c.Request.Context())
	if err != nil {
		fail(c, "获取掩码失败", err)
		return
	}
	ok(c, "ok", masks)
}

type rectRequest struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (r rectRequest) rect() image.Rectangle {
	return image.Rect(r.X0, r.Y0, r.X1, r.Y1)
}

func (h *SessionHandler) SelectRect(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req rectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	n, err := s.SelectRect(c.Request.Context(), req.rect())
	if err != nil {
		fail(c, "框选失败", err)
		return
	}
	ok(c, "ok", gin.H{"selected": n})
}

// DragSelection 拖动中的框选预览
func (h *SessionHandler) DragSelection(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req rectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.DragSelection(c.Request.Context(), req.rect()); err != nil {
		fail(c, "框选失败", err)
		return
	}
	ok(c, "ok", nil)
}

func (h *SessionHandler) ClearSelection(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.ClearSelection(c.Request.Context()); err != nil {
		fail(c, "取消选择失败", err)
		return
	}
	respondStatus(c, s, "ok")
}

func (h *SessionHandler) DeleteSelected(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	n, err := s.DeleteSelected(c.Request.Context())
	if err != nil {
		fail(c, "删除失败", err)
		return
	}
	ok(c, "已删除", gin.H{"deleted": n})
}

type categoryIDRequest struct {
	CategoryID *int `json:"category_id" binding:"required"`
}

func (h *SessionHandler) SetSelectedCategory(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req categoryIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	n, err := s.SetSelectedCategory(c.Request.Context(), *req.CategoryID)
	if err != nil {
		fail(c, "设置类别失败", err)
		return
	}
	ok(c, "类别已设置", gin.H{"changed": n})
}

type visibleRequest struct {
	Visible bool `json:"visible"`
}

func (h *SessionHandler) SetSelectedVisible(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req visibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.SetSelectedVisible(c.Request.Context(), req.Visible); err != nil {
		fail(c, "设置可见性失败", err)
		return
	}
	respondStatus(c, s, "ok")
}

func (h *SessionHandler) SetCategoryVisible(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	cid, valid := intParam(c, "cid")
	if !valid {
		return
	}
	var req visibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.SetCategoryVisible(c.Request.Context(), cid, req.Visible); err != nil {
		fail(c, "设置可见性失败", err)
		return
	}
	respondStatus(c, s, "ok")
}

func (h *SessionHandler) Categories(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	cats, err := s.Categories(c.Request.Context())
	if err != nil {
		fail(c, "获取类别失败", err)
		return
	}
	ok(c, "ok", cats)
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *SessionHandler) AddCategory(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	info, err := s.AddCategory(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, "添加类别失败", err)
		return
	}
	ok(c, "类别已添加", info)
}

func (h *SessionHandler) RenameCategory(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	cid, valid := intParam(c, "cid")
	if !valid {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.RenameCategory(c.Request.Context(), cid, req.Name); err != nil {
		fail(c, "重命名类别失败", err)
		return
	}
	ok(c, "类别已重命名", nil)
}

func (h *SessionHandler) RemoveCategory(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	cid, valid := intParam(c, "cid")
	if !valid {
		return
	}
	if err := s.RemoveCategory(c.Request.Context(), cid); err != nil {
		fail(c, "删除类别失败", err)
		return
	}
	ok(c, "类别已删除", nil)
}

type promptRequest struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Label *int `json:"label"`
}

func (h *SessionHandler) AddPrompt(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	label := model.PromptPositive
	if req.Label != nil {
		label = *req.Label
	}
	if err := s.AddPrompt(c.Request.Context(), req.X, req.Y, label); err != nil {
		fail(c, "添加提示点失败", err)
		return
	}
	respondStatus(c, s, "ok")
}

func (h *SessionHandler) ConfirmPrompt(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	id, err := s.ConfirmPrompt(c.Request.Context())
	if err != nil {
		fail(c, "确认掩码失败", err)
		return
	}
	ok(c, "掩码已添加", gin.H{"mask_id": id})
}

func (h *SessionHandler) UndoPrompt(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	undone, err := s.UndoPrompt(c.Request.Context())
	if err != nil {
		fail(c, "撤销提示点失败", err)
		return
	}
	ok(c, "ok", gin.H{"undone": undone})
}

func (h *SessionHandler) ClearPrompts(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := s.ClearPrompts(c.Request.Context()); err != nil {
		fail(c, "清除提示点失败", err)
		return
	}
	respondStatus(c, s, "ok")
}

func (h *SessionHandler) SetPromptCategory(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req categoryIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.SetPromptCategory(c.Request.Context(), *req.CategoryID); err != nil {
		fail(c, "设置类别失败", err)
		return
	}
	ok(c, "ok", nil)
}
