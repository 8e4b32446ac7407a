// Package compositor 负责视口变换以及将底图和掩码图层合成到画布上。
package compositor

import (
	"image"
	"math"

	"github.com/gogpu/gg"
)

// 默认缩放参数
const (
	DefaultZoomIntensity = 0.2
	DefaultZoomStep      = 0.4
)

// Viewport 画布与图像之间的仿射变换：screen = (image - Origin) * Scale
type Viewport struct {
	Scale  float64
	Origin gg.Point

	canvasWidth  int
	canvasHeight int
	imageWidth   int
	imageHeight  int

	zoomIntensity float64
	zoomStep      float64

	dragging bool
	last     gg.Point
}

// NewViewport 非正的缩放参数使用默认值
func NewViewport(canvasWidth, canvasHeight int, zoomIntensity, zoomStep float64) *Viewport {
	if zoomIntensity <= 0 {
		zoomIntensity = DefaultZoomIntensity
	}
	if zoomStep <= 0 {
		zoomStep = DefaultZoomStep
	}
	return &Viewport{
		Scale:         1,
		canvasWidth:   canvasWidth,
		canvasHeight:  canvasHeight,
		zoomIntensity: zoomIntensity,
		zoomStep:      zoomStep,
	}
}

func (v *Viewport) CanvasSize() (int, int) { return v.canvasWidth, v.canvasHeight }

func (v *Viewport) ImageSize() (int, int) { return v.imageWidth, v.imageHeight }

// SetImageSize 绑定新图像并复位视口
func (v *Viewport) SetImageSize(width, height int) {
	v.imageWidth, v.imageHeight = width, height
	v.Reset()
}

// Resize 画布尺寸变化，变换保持不变
func (v *Viewport) Resize(width, height int) {
	v.canvasWidth, v.canvasHeight = width, height
}

// Matrix 用于绘制的变换矩阵
func (v *Viewport) Matrix() gg.Matrix {
	return gg.Scale(v.Scale, v.Scale).Multiply(gg.Translate(-v.Origin.X, -v.Origin.Y))
}

func (v *Viewport) ImageToScreen(p gg.Point) gg.Point {
	return p.Sub(v.Origin).Mul(v.Scale)
}

func (v *Viewport) ScreenToImage(p gg.Point) gg.Point {
	return p.Div(v.Scale).Add(v.Origin)
}

// ScreenToPixel 画布坐标对应的图像像素，落在图像外时返回 false
func (v *Viewport) ScreenToPixel(x, y float64) (image.Point, bool) {
	p := v.ScreenToImage(gg.Pt(math.Floor(x), math.Floor(y)))
	px, py := int(math.Floor(p.X)), int(math.Floor(p.Y))
	if px < 0 || py < 0 || px >= v.imageWidth || py >= v.imageHeight {
		return image.Point{}, false
	}
	return image.Pt(px, py), true
}

// Reset 等比缩放使图像完整显示在画布中央
func (v *Viewport) Reset() {
	if v.imageWidth <= 0 || v.imageHeight <= 0 || v.canvasWidth <= 0 || v.canvasHeight <= 0 {
		v.Scale = 1
		v.Origin = gg.Point{}
		return
	}
	v.Scale = math.Min(
		float64(v.canvasWidth)/float64(v.imageWidth),
		float64(v.canvasHeight)/float64(v.imageHeight),
	)
	offsetX := (float64(v.canvasWidth) - float64(v.imageWidth)*v.Scale) / 2
	offsetY := (float64(v.canvasHeight) - float64(v.imageHeight)*v.Scale) / 2
	v.Origin = gg.Pt(-offsetX/v.Scale, -offsetY/v.Scale)
}

// zoomAt 以画布上的 anchor 为不动点缩放到 scale
func (v *Viewport) zoomAt(anchor gg.Point, scale float64) {
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return
	}
	v.Origin = v.Origin.Sub(anchor.Div(scale).Sub(anchor.Div(v.Scale)))
	v.Scale = scale
}

func (v *Viewport) center() gg.Point {
	return gg.Pt(float64(v.canvasWidth)/2, float64(v.canvasHeight)/2)
}

// ZoomIn 以画布中心为不动点放大一个步长
func (v *Viewport) ZoomIn() {
	v.zoomAt(v.center(), v.Scale+v.zoomStep)
}

// ZoomOut 缩放比例不会降到零以下
func (v *Viewport) ZoomOut() {
	v.zoomAt(v.center(), v.Scale-v.zoomStep)
}

// Wheel 滚轮缩放，光标下的图像点保持不动。deltaY < 0 放大。
func (v *Viewport) Wheel(x, y, deltaY float64) {
	if deltaY == 0 {
		return
	}
	wheel := -1.0
	if deltaY < 0 {
		wheel = 1
	}
	v.zoomAt(gg.Pt(x, y), v.Scale*math.Exp(wheel*v.zoomIntensity))
}

// BeginDrag 右键按下
func (v *Viewport) BeginDrag(x, y float64) {
	v.dragging = true
	v.last = gg.Pt(x, y)
}

// DragTo 拖动平移
func (v *Viewport) DragTo(x, y float64) {
	if !v.dragging {
		return
	}
	p := gg.Pt(x, y)
	v.Origin = v.Origin.Sub(p.Sub(v.last).Div(v.Scale))
	v.last = p
}

func (v *Viewport) EndDrag() { v.dragging = false }

func (v *Viewport) Dragging() bool { return v.dragging }
