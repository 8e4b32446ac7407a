package handler

import (
	"github.com/gin-gonic/gin"
)

type outputDirRequest struct {
	OutputDir string `json:"output_dir" binding:"required"`
}

// StartExport 后台导出标注图像
func (h *SessionHandler) StartExport(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req outputDirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.StartExport(req.OutputDir); err != nil {
		fail(c, "启动导出失败", err)
		return
	}
	ok(c, "导出已开始", s.ExportStatus())
}

func (h *SessionHandler) ExportStatus(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	ok(c, "ok", s.ExportStatus())
}

// CancelExport 在两张图像之间停止导出
func (h *SessionHandler) CancelExport(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	ok(c, "ok", gin.H{"cancelled": s.CancelExport()})
}

func (h *SessionHandler) ExportImages(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req outputDirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.ExportImages(c.Request.Context(), req.OutputDir); err != nil {
		fail(c, "导出图像失败", err)
		return
	}
	ok(c, "图像已导出", nil)
}

type outputPathRequest struct {
	OutputPath string `json:"output_path" binding:"required"`
}

func (h *SessionHandler) ExportCOCO(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req outputPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求格式错误", err)
		return
	}
	if err := s.ExportCOCO(c.Request.Context(), req.OutputPath); err != nil {
		fail(c, "导出 COCO 失败", err)
		return
	}
	ok(c, "COCO 已导出", nil)
}
