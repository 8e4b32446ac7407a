package session

import (
	"image"

	"github.com/TIANLI0/reefmask/annotation"
)

// Selection 当前选中的掩码，按实体区分。
// 成员变化时掩码被标记为已修改，以便渲染引擎重绘焦点颜色。
type Selection struct {
	members map[*annotation.Mask]struct{}
	order   []*annotation.Mask
}

func NewSelection() *Selection {
	return &Selection{members: make(map[*annotation.Mask]struct{})}
}

// Select 返回是否新加入
func (s *Selection) Select(m *annotation.Mask) bool {
	if s.Contains(m) {
		return false
	}
	s.members[m] = struct{}{}
	s.order = append(s.order, m)
	m.MarkModified()
	return true
}

// Unselect 返回是否被移除
func (s *Selection) Unselect(m *annotation.Mask) bool {
	if !s.Contains(m) {
		return false
	}
	delete(s.members, m)
	for i, other := range s.order {
		if other == m {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	m.MarkModified()
	return true
}

// Toggle 返回切换后是否选中
func (s *Selection) Toggle(m *annotation.Mask) bool {
	if s.Unselect(m) {
		return false
	}
	return s.Select(m)
}

func (s *Selection) Contains(m *annotation.Mask) bool {
	_, ok := s.members[m]
	return ok
}

func (s *Selection) Len() int { return len(s.order) }

// Masks 按选中顺序返回副本
func (s *Selection) Masks() []*annotation.Mask {
	return append([]*annotation.Mask(nil), s.order...)
}

// Clear 取消全部选中
func (s *Selection) Clear() {
	for _, m := range s.order {
		m.MarkModified()
	}
	s.Reset()
}

// Reset 丢弃选中集合，不修改掩码（掩码已被整体替换时使用）
func (s *Selection) Reset() {
	s.members = make(map[*annotation.Mask]struct{})
	s.order = nil
}

// SelectPixel 切换所有包含该像素的掩码，返回受影响的数量
func (s *Selection) SelectPixel(masks []*annotation.Mask, x, y int) int {
	n := 0
	for _, m := range masks {
		if m.ContainsPixel(x, y) {
			s.Toggle(m)
			n++
		}
	}
	return n
}

// SelectRect 选中落入矩形的掩码：外接框完全在矩形内的直接选中，
// 仅相交的再逐像素检查。返回新选中的数量。
func (s *Selection) SelectRect(masks []*annotation.Mask, rect image.Rectangle) int {
	rect = rect.Canon()
	n := 0
	for _, m := range masks {
		if !m.Visible() {
			continue
		}
		box := m.BBox().Rect()
		if box.Empty() {
			box = m.Bounds()
		}
		switch {
		case box.Empty() || !box.Overlaps(rect):
			continue
		case box.In(rect):
		case !anyPixelIn(m, rect.Intersect(box)):
			continue
		}
		if s.Select(m) {
			n++
		}
	}
	return n
}

func anyPixelIn(m *annotation.Mask, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if m.ContainsPixel(x, y) {
				return true
			}
		}
	}
	return false
}
