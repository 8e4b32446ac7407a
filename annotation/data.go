package annotation

import (
	"errors"
	"fmt"

	"github.com/TIANLI0/reefmask/model"
	"go.uber.org/zap"
)

var ErrNoImage = errors.New("payload has no image")

// Data 单张图像的掩码集合
type Data struct {
	ImageName string
	ImagePath string
	Idx       int
	Width     int
	Height    int

	masks  []*Mask
	logger *zap.Logger
}

func NewData(name, path string, idx, width, height int, logger *zap.Logger) *Data {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Data{
		ImageName: name,
		ImagePath: path,
		Idx:       idx,
		Width:     width,
		Height:    height,
		logger:    logger,
	}
}

// FromPayload 解析后端返回的数据，并校验每个掩码能按图像尺寸解码
func FromPayload(p model.DataPayload, logger *zap.Logger) (*Data, error) {
	if len(p.Segmentation.Images) == 0 {
		return nil, fmt.Errorf("data %d: %w", p.Idx, ErrNoImage)
	}
	img := p.Segmentation.Images[0]
	d := NewData(p.ImageName, p.ImagePath, p.Idx, img.Width, img.Height, logger)
	for _, ann := range p.Segmentation.Annotations {
		m := NewMask(ann)
		if m.Width() != d.Width || m.Height() != d.Height {
			return nil, fmt.Errorf("mask %d is %dx%d, image is %dx%d",
				m.ID(), m.Width(), m.Height(), d.Width, d.Height)
		}
		if _, err := m.Decoded(); err != nil {
			return nil, fmt.Errorf("data %d: %w", p.Idx, err)
		}
		d.masks = append(d.masks, m)
	}
	return d, nil
}

// Masks 返回有序的掩码列表，调用方不应修改该切片
func (d *Data) Masks() []*Mask {
	return d.masks
}

// Len 掩码数量
func (d *Data) Len() int { return len(d.masks) }

// Contains 按实体判断掩码是否属于该集合
func (d *Data) Contains(m *Mask) bool {
	for _, other := range d.masks {
		if other == m {
			return true
		}
	}
	return false
}

// MaskByID 按 id 查找
func (d *Data) MaskByID(id int) *Mask {
	for _, m := range d.masks {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// AddMask 分配最小未使用的 id 后加入集合。
// 仍处于提示类别的掩码被改为未定义类别。
func (d *Data) AddMask(m *Mask) {
	m.SetID(d.availableMaskID())
	if m.Category().IsPrompt() {
		m.SetCategory(Undefined())
	}
	d.masks = append(d.masks, m)

	seen := make(map[int]struct{}, len(d.masks))
	for _, other := range d.masks {
		seen[other.ID()] = struct{}{}
	}
	if len(seen) != len(d.masks) {
		d.logger.Error("mask ids are not unique",
			zap.Int("masks", len(d.masks)),
			zap.Int("unique_ids", len(seen)))
	}
}

// RemoveMask 按实体移除，返回是否找到
func (d *Data) RemoveMask(m *Mask) bool {
	for i, other := range d.masks {
		if other == m {
			d.masks = append(d.masks[:i:i], d.masks[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Data) availableMaskID() int {
	used := make(map[int]struct{}, len(d.masks))
	for _, m := range d.masks {
		used[m.ID()] = struct{}{}
	}
	id := 0
	for {
		if _, ok := used[id]; !ok {
			return id
		}
		id++
	}
}

// DeepCopy 连同掩码一起复制
func (d *Data) DeepCopy() *Data {
	c := NewData(d.ImageName, d.ImagePath, d.Idx, d.Width, d.Height, d.logger)
	c.masks = make([]*Mask, len(d.masks))
	for i, m := range d.masks {
		c.masks[i] = m.DeepCopy()
	}
	return c
}

// Payload 序列化为保存格式
func (d *Data) Payload(reg *Registry) model.ProjectData {
	anns := make([]model.Annotation, len(d.masks))
	for i, m := range d.masks {
		anns[i] = m.Annotation()
	}
	out := model.ProjectData{
		Images: []model.ImageInfo{{
			ID:       d.Idx,
			FileName: d.ImageName,
			Width:    d.Width,
			Height:   d.Height,
		}},
		Annotations: anns,
	}
	if reg != nil {
		out.CategoryInfo = reg.Snapshot()
	}
	return out
}
