// Package backend 封装与推理/项目后端的交互。
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/TIANLI0/reefmask/model"
)

var (
	ErrClosed = errors.New("backend: connection closed")
	ErrNoData = errors.New("backend: no data")
)

// RemoteError 后端返回的错误
type RemoteError struct {
	Text      string `json:"errorText"`
	Traceback string `json:"errorTraceback,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend: %s", e.Text)
}

// Client 后端提供的操作
type Client interface {
	// LoadProject 打开项目文件，返回画廊所需的数据列表
	LoadProject(ctx context.Context, path string) ([]model.DataPayload, error)
	CurrentData(ctx context.Context) (model.DataPayload, error)
	NextData(ctx context.Context) (model.DataPayload, error)
	PrevData(ctx context.Context) (model.DataPayload, error)
	DataByIdx(ctx context.Context, idx int) (model.DataPayload, error)
	DataList(ctx context.Context) ([]model.DataPayload, error)
	SaveData(ctx context.Context, data model.ProjectData) error
	SaveDataset(ctx context.Context, path string) error

	// CreateMask 由提示点推理候选掩码，imageKey 标识当前图像
	CreateMask(ctx context.Context, imageKey string, prompts []model.PromptPoint) (model.Annotation, error)
	DataIDsByCategory(ctx context.Context, categoryID int) ([]int, error)

	ExportImages(ctx context.Context, outputDir string) error
	ExportAnnotatedImages(ctx context.Context, outputDir string, images []model.AnnotatedImage) error
	ExportCOCO(ctx context.Context, outputPath string) error

	Close() error
}
