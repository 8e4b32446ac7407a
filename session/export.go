package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/compositor"
	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/render"
	"go.uber.org/zap"
)

// ExportAnnotated 逐张渲染项目中的图像并交给后端写出。
// 每张图像之间检查 ctx；单张失败被报告后跳过，最终一并返回。
func (s *Session) ExportAnnotated(ctx context.Context, outputDir string, progress func(done, total int)) error {
	if s.encoder == nil {
		return ErrNoEncoder
	}
	if err := s.save(ctx, false); err != nil {
		return err
	}
	var opacity float64
	if err := s.do(ctx, func() error {
		opacity = s.compositor.Opacity()
		return nil
	}); err != nil {
		return err
	}

	list, err := s.client.DataList(ctx)
	if err != nil {
		return fmt.Errorf("get data list: %w", err)
	}
	s.logger.Info("exporting annotated images",
		zap.String("output_dir", outputDir),
		zap.Int("total", len(list)))

	var errs []error
	for i, payload := range list {
		if err := ctx.Err(); err != nil {
			s.logger.Info("export cancelled", zap.Int("done", i), zap.Int("total", len(list)))
			return err
		}
		if err := s.exportOne(ctx, outputDir, payload, opacity); err != nil {
			s.logger.Error("failed to export image", zap.String("image", payload.ImageName), zap.Error(err))
			s.report(err)
			errs = append(errs, err)
		}
		if progress != nil {
			progress(i+1, len(list))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) exportOne(ctx context.Context, outputDir string, payload model.DataPayload, opacity float64) error {
	data, err := annotation.FromPayload(payload, s.logger)
	if err != nil {
		return fmt.Errorf("export %s: %w", payload.ImageName, err)
	}
	engine := render.New(data.Width, data.Height,
		render.WithIncremental(false),
		render.WithLogger(s.logger))
	engine.Update(data.Masks())

	out := compositor.RenderAnnotated(s.loadImage(data), engine.Layers(), opacity)
	url, err := s.encoder.DataURL(out)
	if err != nil {
		return fmt.Errorf("encode %s: %w", data.ImageName, err)
	}
	img := model.AnnotatedImage{ImageName: data.ImageName, EncodedImage: url}
	if err := s.client.ExportAnnotatedImages(ctx, outputDir, []model.AnnotatedImage{img}); err != nil {
		return fmt.Errorf("export %s: %w", data.ImageName, err)
	}
	return nil
}

// StartExport 在后台导出标注图像，进度由 ExportStatus 查询
func (s *Session) StartExport(outputDir string) error {
	if s.encoder == nil {
		return ErrNoEncoder
	}
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	if s.export.Running {
		return ErrExportRunning
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.export = model.ExportStatus{Running: true}
	s.exportCancel = cancel

	s.exportWG.Add(1)
	go func() {
		defer s.exportWG.Done()
		defer cancel()
		err := s.ExportAnnotated(ctx, outputDir, func(done, total int) {
			s.exportMu.Lock()
			s.export.Done, s.export.Total = done, total
			s.exportMu.Unlock()
		})
		s.exportMu.Lock()
		s.export.Running = false
		s.exportCancel = nil
		if err != nil {
			s.export.Error = err.Error()
		}
		s.exportMu.Unlock()
	}()
	return nil
}

// CancelExport 返回是否有正在进行的导出
func (s *Session) CancelExport() bool {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	if s.exportCancel == nil {
		return false
	}
	s.exportCancel()
	return true
}

func (s *Session) ExportStatus() model.ExportStatus {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	return s.export
}
