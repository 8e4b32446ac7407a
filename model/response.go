package model

// Response 通用响应
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MaskSummary 掩码概要，供面板展示
type MaskSummary struct {
	ID         int    `json:"id"`
	CategoryID int    `json:"category_id"`
	Category   string `json:"category"`
	Area       int    `json:"area"`
	BBox       BBox   `json:"bbox"`
	Visible    bool   `json:"visible"`
	Selected   bool   `json:"selected"`
}

// ExportStatus 导出进度
type ExportStatus struct {
	Running bool   `json:"running"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// SessionStatus 会话当前状态
type SessionStatus struct {
	ID        string `json:"id"`
	ImageName string `json:"image_name,omitempty"`
	Idx       int    `json:"idx"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Mode      string `json:"mode"`
	Masks     int    `json:"masks"`
	Selected  int    `json:"selected"`
	Prompts   int    `json:"prompts"`
	Pending   bool   `json:"pending"`
	CanUndo   bool   `json:"can_undo"`
	CanRedo   bool   `json:"can_redo"`
	Modified  bool   `json:"modified"`
	Revision  uint64 `json:"revision"`
}
