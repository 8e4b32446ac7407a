package render

import (
	"image"
	"image/color"
	"math"
)

// region 图层上需要重绘的像素集合。位图随引擎复用，
// 只记录被标记的下标，清空与重置的代价与区域大小成正比。
type region struct {
	width  int
	height int
	bits   []bool
	marked []int
	bounds image.Rectangle
}

func newRegion(width, height int) *region {
	return &region{width: width, height: height, bits: make([]bool, width*height)}
}

func (r *region) add(x, y int) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return
	}
	i := y*r.width + x
	if r.bits[i] {
		return
	}
	r.bits[i] = true
	r.marked = append(r.marked, i)
	p := image.Rect(x, y, x+1, y+1)
	if r.bounds.Empty() {
		r.bounds = p
	} else {
		r.bounds = r.bounds.Union(p)
	}
}

// has nil 表示不裁剪
func (r *region) has(i int) bool {
	return r == nil || r.bits[i]
}

// size 区域内的像素数
func (r *region) size() int {
	if r == nil {
		return 0
	}
	return len(r.marked)
}

func (r *region) overlaps(rect image.Rectangle) bool {
	return r == nil || r.bounds.Overlaps(rect)
}

// clip 将 rect 限制在区域外接矩形内，nil 区域不裁剪
func (r *region) clip(rect image.Rectangle) image.Rectangle {
	if r == nil {
		return rect
	}
	return rect.Intersect(r.bounds)
}

// clear 将区域内的像素置为全透明
func (r *region) clear(layer *image.RGBA) {
	for _, i := range r.marked {
		setPixel(layer, i, color.RGBA{})
	}
}

// reset 清空区域以便复用
func (r *region) reset() {
	for _, i := range r.marked {
		r.bits[i] = false
	}
	r.marked = r.marked[:0]
	r.bounds = image.Rectangle{}
}

func setPixel(layer *image.RGBA, i int, c color.RGBA) {
	p := layer.Pix[i*4 : i*4+4 : i*4+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

// diskOffsets 半径 r 的整数圆盘覆盖的偏移
func diskOffsets(r int) []image.Point {
	var out []image.Point
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				out = append(out, image.Pt(dx, dy))
			}
		}
	}
	return out
}

// geometry 由图像尺寸决定的绘制参数
type geometry struct {
	dotRadius   int
	dot         []image.Point
	fontSize    int
	badgeRadius float64
	eraseRadius int

	// 徽标精灵相对质心的左上角偏移及边长
	badgeOffset image.Point
	badgeSide   int
	// 精灵内徽标圆心
	badgeCenter [2]float64
	// 精灵内擦除圆盘覆盖的像素
	badgeDisk []bool
}

func newGeometry(width, height int) geometry {
	short := float64(min(width, height))
	g := geometry{
		dotRadius: max(1, int(math.Round(short*0.0015))),
		fontSize:  min(int(math.Floor(short*0.04)), 40),
	}
	g.dot = diskOffsets(g.dotRadius)
	g.badgeRadius = max(float64(g.fontSize)*0.7, 8)
	g.eraseRadius = int(math.Ceil(g.badgeRadius * 1.3))

	half := g.badgeRadius / 2
	R := g.eraseRadius
	g.badgeOffset = image.Pt(int(math.Floor(half))-R-1, int(math.Floor(-half))-R-1)
	g.badgeSide = 2*R + 3
	g.badgeCenter = [2]float64{
		half - float64(g.badgeOffset.X),
		-half - float64(g.badgeOffset.Y),
	}
	g.badgeDisk = make([]bool, g.badgeSide*g.badgeSide)
	for j := 0; j < g.badgeSide; j++ {
		for i := 0; i < g.badgeSide; i++ {
			dx := float64(i) + 0.5 - g.badgeCenter[0]
			dy := float64(j) + 0.5 - g.badgeCenter[1]
			g.badgeDisk[j*g.badgeSide+i] = dx*dx+dy*dy <= float64(R*R)
		}
	}
	return g
}
