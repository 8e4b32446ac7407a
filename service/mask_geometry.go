package service

import (
	"fmt"
	"image"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/model"
	"gocv.io/x/gocv"
)

// MaskGeometry 为后端未给出面积或边界框的掩码补全几何信息
type MaskGeometry struct{}

func NewMaskGeometry() *MaskGeometry {
	return &MaskGeometry{}
}

// Measure 返回前景像素数与外接框
func (g *MaskGeometry) Measure(m *annotation.Mask) (int, model.BBox, error) {
	pixels, err := m.Decoded()
	if err != nil {
		return 0, model.BBox{}, err
	}
	buf := make([]byte, len(pixels))
	for i, v := range pixels {
		if v != 0 {
			buf[i] = 255
		}
	}

	mat, err := gocv.NewMatFromBytes(m.Height(), m.Width(), gocv.MatTypeCV8U, buf)
	if err != nil {
		return 0, model.BBox{}, fmt.Errorf("failed to build mask mat: %w", err)
	}
	defer mat.Close()

	return gocv.CountNonZero(mat), boundingBox(&mat), nil
}

// boundingBox 所有外轮廓外接矩形的并集
func boundingBox(mask *gocv.Mat) model.BBox {
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return model.BBox{}
	}

	var union image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if i == 0 {
			union = r
		} else {
			union = union.Union(r)
		}
	}

	return model.BBox{
		X:      union.Min.X,
		Y:      union.Min.Y,
		Width:  union.Dx(),
		Height: union.Dy(),
	}
}
