package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"path/filepath"

	"github.com/TIANLI0/reefmask/config"
	"github.com/TIANLI0/reefmask/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ImageStore 读取底图并编码导出图像
type ImageStore struct {
	dir string
}

func NewImageStore(cfg *config.StorageConfig) *ImageStore {
	return &ImageStore{dir: cfg.ImageDir}
}

// resolve 相对路径以 image_dir 为根
func (s *ImageStore) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// Load 读取图像
func (s *ImageStore) Load(path string) (image.Image, error) {
	full := s.resolve(path)
	img := gocv.IMRead(full, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("failed to read image %s", full)
	}
	defer img.Close()

	utils.Logger.Debug("image loaded",
		zap.String("path", full),
		zap.Int("width", img.Cols()),
		zap.Int("height", img.Rows()))

	return img.ToImage()
}

// EncodePNG 保留透明通道编码为 PNG
func (s *ImageStore) EncodePNG(img image.Image) ([]byte, error) {
	mat, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	data, err := gocv.IMEncode(".png", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer data.Close()

	return bytes.Clone(data.GetBytes()), nil
}

// DataURL 编码为 data:image/png;base64 形式
func (s *ImageStore) DataURL(img image.Image) (string, error) {
	data, err := s.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
