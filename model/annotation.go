package model

import "image"

// Segmentation COCO格式的分割信息，Size 为 [height, width]
type Segmentation struct {
	Size   [2]int `json:"size"`
	Counts string `json:"counts"`
}

// Annotation 单个掩码的标注记录
type Annotation struct {
	ID           int          `json:"id"`
	ImageID      int          `json:"image_id"`
	CategoryID   int          `json:"category_id"`
	Segmentation Segmentation `json:"segmentation"`
	RLE          []int        `json:"rle,omitempty"` // 行优先的可视化游程编码
	Area         int          `json:"area"`
	BBox         []float64    `json:"bbox"` // [x, y, width, height]
	IsCrowd      int          `json:"iscrowd"`
	PredictedIoU float64      `json:"predicted_iou"`
}

// Width 掩码宽度
func (a *Annotation) Width() int { return a.Segmentation.Size[1] }

// Height 掩码高度
func (a *Annotation) Height() int { return a.Segmentation.Size[0] }

// BBox 边界框
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BBoxFromSlice converts a COCO [x, y, w, h] list. Short lists yield a zero box.
func BBoxFromSlice(v []float64) BBox {
	if len(v) < 4 {
		return BBox{}
	}
	return BBox{X: int(v[0]), Y: int(v[1]), Width: int(v[2]), Height: int(v[3])}
}

// Slice returns the COCO [x, y, w, h] form.
func (b BBox) Slice() []float64 {
	return []float64{float64(b.X), float64(b.Y), float64(b.Width), float64(b.Height)}
}

// Rect returns the box as a half-open image rectangle.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box covers no pixels.
func (b BBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}
