package render

import (
	"image"
	"image/color"
	"math"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/anthonynsimon/bild/clone"
	"github.com/gogpu/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// badge 返回类别徽标精灵，按类别缓存
func (e *Engine) badge(c annotation.Category) *image.RGBA {
	if s, ok := e.badges[c.ID]; ok {
		return s
	}
	s := e.renderBadge(c)
	e.badges[c.ID] = s
	return s
}

// renderBadge 绘制填充圆、白色描边和类别标签，擦除圆盘外的像素被清空
func (e *Engine) renderBadge(c annotation.Category) *image.RGBA {
	g := e.geom
	cx, cy := g.badgeCenter[0], g.badgeCenter[1]

	dc := gg.NewContext(g.badgeSide, g.badgeSide)
	defer dc.Close()

	dc.SetColor(c.FillColor())
	dc.DrawCircle(cx, cy, g.badgeRadius)
	if err := dc.Fill(); err != nil {
		e.logger.Warn("failed to fill badge", zap.Int("category", c.ID), zap.Error(err))
	}
	dc.SetColor(color.White)
	dc.SetLineWidth(1)
	dc.DrawCircle(cx, cy, g.badgeRadius)
	if err := dc.Stroke(); err != nil {
		e.logger.Warn("failed to stroke badge", zap.Int("category", c.ID), zap.Error(err))
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		img = clone.AsRGBA(dc.Image())
	}

	label := c.Label()
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c.TextColor()),
		Face: basicfont.Face7x13,
	}
	advance := d.MeasureString(label)
	// 7x13 字形：上升 11，下降 2
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(math.Round(cx*64)) - advance/2,
		Y: fixed.Int26_6(math.Round((cy + 4.5) * 64)),
	}
	d.DrawString(label)

	for i, inside := range g.badgeDisk {
		if !inside {
			setPixel(img, i, color.RGBA{})
		}
	}
	return img
}
