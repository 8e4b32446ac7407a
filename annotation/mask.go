package annotation

import (
	"errors"
	"fmt"
	"image"

	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/rle"
	"github.com/jinzhu/copier"
)

var ErrEmptySize = errors.New("mask has no size")

// Mask 单个掩码实体。像素内容解码后不可变，类别与可见性可修改。
// 渲染引擎按指针区分掩码，像素相同的两个掩码仍是不同实体。
type Mask struct {
	ann      model.Annotation
	category Category
	visible  bool
	modified bool

	decoded   []uint8
	decodeErr error
	decodeRun bool

	centroid     image.Point
	centroidOK   bool
	centroidDone bool

	border     []int
	borderDone bool

	bounds     image.Rectangle
	boundsDone bool
}

// NewMask 由标注记录创建掩码，记录被复制
func NewMask(ann model.Annotation) *Mask {
	m := &Mask{visible: true, category: Category{ID: ann.CategoryID}}
	if err := copier.CopyWithOption(&m.ann, &ann, copier.Option{DeepCopy: true}); err != nil {
		m.ann = ann
	}
	return m
}

func (m *Mask) ID() int { return m.ann.ID }

// SetID 同步修改记录中的 id
func (m *Mask) SetID(id int) { m.ann.ID = id }

func (m *Mask) ImageID() int { return m.ann.ImageID }

func (m *Mask) Width() int { return m.ann.Width() }

func (m *Mask) Height() int { return m.ann.Height() }

func (m *Mask) Area() int { return m.ann.Area }

func (m *Mask) Category() Category { return m.category }

// SetCategory 返回类别是否发生变化，不会自动标记为已修改
func (m *Mask) SetCategory(c Category) bool {
	if m.category == c {
		return false
	}
	m.category = c
	m.ann.CategoryID = c.ID
	return true
}

func (m *Mask) Visible() bool { return m.visible }

// SetVisible 返回可见性是否发生变化，不会自动标记为已修改
func (m *Mask) SetVisible(v bool) bool {
	if m.visible == v {
		return false
	}
	m.visible = v
	return true
}

func (m *Mask) Modified() bool { return m.modified }

func (m *Mask) MarkModified() { m.modified = true }

func (m *Mask) ClearModified() { m.modified = false }

// BBox 记录中的边界框
func (m *Mask) BBox() model.BBox { return model.BBoxFromSlice(m.ann.BBox) }

// SetGeometry 补全记录中的面积与边界框
func (m *Mask) SetGeometry(area int, box model.BBox) {
	m.ann.Area = area
	m.ann.BBox = box.Slice()
}

// Annotation 返回用于持久化的记录副本
func (m *Mask) Annotation() model.Annotation {
	var out model.Annotation
	if err := copier.CopyWithOption(&out, &m.ann, copier.Option{DeepCopy: true}); err != nil {
		out = m.ann
	}
	out.CategoryID = m.category.ID
	return out
}

// Decoded 返回解码后的像素缓冲区，只解码一次
func (m *Mask) Decoded() ([]uint8, error) {
	if !m.decodeRun {
		m.decodeRun = true
		m.decoded, m.decodeErr = m.decode()
	}
	return m.decoded, m.decodeErr
}

// Pixels 解码失败时返回 nil
func (m *Mask) Pixels() []uint8 {
	buf, err := m.Decoded()
	if err != nil {
		return nil
	}
	return buf
}

func (m *Mask) decode() ([]uint8, error) {
	w, h := m.Width(), m.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("mask %d: %w", m.ann.ID, ErrEmptySize)
	}
	runs := m.ann.RLE
	if len(runs) == 0 {
		counts, err := rle.DecodeCounts(m.ann.Segmentation.Counts)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", m.ann.ID, err)
		}
		runs, err = rle.Transpose(counts, h, w)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", m.ann.ID, err)
		}
	}
	buf, err := rle.Decode(runs, w*h)
	if err != nil {
		return nil, fmt.Errorf("mask %d: %w", m.ann.ID, err)
	}
	return buf, nil
}

// ContainsPixel 坐标需由调用方保证在图像范围内，越界返回 false
func (m *Mask) ContainsPixel(x, y int) bool {
	buf := m.Pixels()
	w := m.Width()
	if x < 0 || y < 0 || x >= w || y >= m.Height() || buf == nil {
		return false
	}
	return buf[y*w+x] == 1
}

// Centroid 前景像素坐标的均值（向下取整），空掩码返回 false
func (m *Mask) Centroid() (image.Point, bool) {
	if m.centroidDone {
		return m.centroid, m.centroidOK
	}
	m.centroidDone = true
	buf := m.Pixels()
	w := m.Width()
	b := m.Bounds()
	var sumX, sumY, count int64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if buf[y*w+x] == 1 {
				sumX += int64(x)
				sumY += int64(y)
				count++
			}
		}
	}
	if count == 0 {
		return image.Point{}, false
	}
	m.centroid = image.Pt(int(sumX/count), int(sumY/count))
	m.centroidOK = true
	return m.centroid, true
}

// BorderPixels 有 4 邻域背景像素的前景像素下标，按行优先排列。
// 邻域检查限定在同一行内，不会跨行回绕。
func (m *Mask) BorderPixels() []int {
	if m.borderDone {
		return m.border
	}
	m.borderDone = true
	buf := m.Pixels()
	w, h := m.Width(), m.Height()
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := y*w + x
			if buf[i] != 1 {
				continue
			}
			if (x > 0 && buf[i-1] == 0) ||
				(x < w-1 && buf[i+1] == 0) ||
				(y > 0 && buf[i-w] == 0) ||
				(y < h-1 && buf[i+w] == 0) {
				m.border = append(m.border, i)
			}
		}
	}
	return m.border
}

// Bounds 前景像素的实际外接矩形，只计算一次
func (m *Mask) Bounds() image.Rectangle {
	if m.boundsDone {
		return m.bounds
	}
	m.boundsDone = true
	buf := m.Pixels()
	w := m.Width()
	minX, minY, maxX, maxY := w, m.Height(), -1, -1
	for i, v := range buf {
		if v != 1 {
			continue
		}
		x, y := i%w, i/w
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	if maxX >= 0 {
		m.bounds = image.Rect(minX, minY, maxX+1, maxY+1)
	}
	return m.bounds
}

// DeepCopy 复制记录并重新解码，快照与原掩码互不影响
func (m *Mask) DeepCopy() *Mask {
	c := NewMask(m.ann)
	c.category = m.category
	c.ann.CategoryID = m.category.ID
	c.visible = m.visible
	return c
}
