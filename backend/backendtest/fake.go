// Package backendtest 提供内存中的后端实现，供测试使用。
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/model"
)

// Fake 内存中的项目后端
type Fake struct {
	mu sync.Mutex

	Data    []model.DataPayload
	Current int

	Saved    []model.ProjectData
	Exported map[string][]model.AnnotatedImage

	// CreateMaskFunc 为 nil 时返回 ErrNoData
	CreateMaskFunc  func(ctx context.Context, prompts []model.PromptPoint) (model.Annotation, error)
	CreateMaskCalls int

	// OnExport 每导出一张标注图像后调用，参数为已导出总数
	OnExport func(n int)

	// Err 非 nil 时所有调用都返回该错误
	Err error

	closed bool
}

var _ backend.Client = (*Fake)(nil)

func (f *Fake) check() error {
	if f.closed {
		return backend.ErrClosed
	}
	return f.Err
}

func (f *Fake) at(idx int) (model.DataPayload, error) {
	if err := f.check(); err != nil {
		return model.DataPayload{}, err
	}
	if idx < 0 || idx >= len(f.Data) {
		return model.DataPayload{}, fmt.Errorf("data %d: %w", idx, backend.ErrNoData)
	}
	f.Current = idx
	return f.Data[idx], nil
}

func (f *Fake) LoadProject(ctx context.Context, path string) ([]model.DataPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	f.Current = 0
	return append([]model.DataPayload(nil), f.Data...), nil
}

func (f *Fake) CurrentData(ctx context.Context) (model.DataPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at(f.Current)
}

func (f *Fake) NextData(ctx context.Context) (model.DataPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at(f.Current + 1)
}

func (f *Fake) PrevData(ctx context.Context) (model.DataPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at(f.Current - 1)
}

func (f *Fake) DataByIdx(ctx context.Context, idx int) (model.DataPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at(idx)
}

func (f *Fake) DataList(ctx context.Context) ([]model.DataPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	return append([]model.DataPayload(nil), f.Data...), nil
}

// SaveData 同时更新当前图像的标注和类别
func (f *Fake) SaveData(ctx context.Context, data model.ProjectData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	f.Saved = append(f.Saved, data)
	if f.Current >= 0 && f.Current < len(f.Data) {
		f.Data[f.Current].Segmentation.Annotations = data.Annotations
		f.Data[f.Current].CategoryInfo = data.CategoryInfo
	}
	return nil
}

func (f *Fake) SaveDataset(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *Fake) CreateMask(ctx context.Context, imageKey string, prompts []model.PromptPoint) (model.Annotation, error) {
	f.mu.Lock()
	f.CreateMaskCalls++
	fn := f.CreateMaskFunc
	err := f.check()
	f.mu.Unlock()
	if err != nil {
		return model.Annotation{}, err
	}
	if fn == nil {
		return model.Annotation{}, backend.ErrNoData
	}
	return fn(ctx, prompts)
}

// Calls CreateMask 被调用的次数
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CreateMaskCalls
}

func (f *Fake) DataIDsByCategory(ctx context.Context, categoryID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	var ids []int
	for _, d := range f.Data {
		for _, ann := range d.Segmentation.Annotations {
			if ann.CategoryID == categoryID {
				ids = append(ids, d.Idx)
				break
			}
		}
	}
	return ids, nil
}

func (f *Fake) ExportImages(ctx context.Context, outputDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *Fake) ExportAnnotatedImages(ctx context.Context, outputDir string, images []model.AnnotatedImage) error {
	f.mu.Lock()
	if err := f.check(); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.Exported == nil {
		f.Exported = make(map[string][]model.AnnotatedImage)
	}
	f.Exported[outputDir] = append(f.Exported[outputDir], images...)
	n := len(f.Exported[outputDir])
	hook := f.OnExport
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

// ExportedImages 导出到 outputDir 的图像
func (f *Fake) ExportedImages(outputDir string) []model.AnnotatedImage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AnnotatedImage(nil), f.Exported[outputDir]...)
}

func (f *Fake) ExportCOCO(ctx context.Context, outputPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
