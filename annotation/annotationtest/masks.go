// Package annotationtest 提供测试用的掩码构造工具。
package annotationtest

import (
	"image"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/rle"
)

// Record 构造 width×height 的标注记录，fg 为前景像素
func Record(width, height, category int, fg ...image.Point) model.Annotation {
	buf := make([]uint8, width*height)
	for _, p := range fg {
		buf[p.Y*width+p.X] = 1
	}
	return RecordFromBuffer(width, height, category, buf)
}

// RecordFromBuffer 由稠密缓冲区构造标注记录
func RecordFromBuffer(width, height, category int, buf []uint8) model.Annotation {
	bounds := image.Rectangle{}
	area := 0
	for i, v := range buf {
		if v == 0 {
			continue
		}
		area++
		p := image.Rect(i%width, i/width, i%width+1, i/width+1)
		if bounds.Empty() {
			bounds = p
		} else {
			bounds = bounds.Union(p)
		}
	}
	return model.Annotation{
		CategoryID:   category,
		Segmentation: model.Segmentation{Size: [2]int{height, width}, Counts: ""},
		RLE:          rle.Encode(buf),
		Area:         area,
		BBox: []float64{
			float64(bounds.Min.X), float64(bounds.Min.Y),
			float64(bounds.Dx()), float64(bounds.Dy()),
		},
		PredictedIoU: 0.9,
	}
}

// Mask 构造掩码实体
func Mask(width, height, category int, fg ...image.Point) *annotation.Mask {
	return annotation.NewMask(Record(width, height, category, fg...))
}

// Rect 构造矩形区域的掩码
func Rect(width, height, category int, r image.Rectangle) *annotation.Mask {
	var pts []image.Point
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pts = append(pts, image.Pt(x, y))
		}
	}
	return Mask(width, height, category, pts...)
}

// Disk 构造圆形区域的掩码
func Disk(width, height, category int, c image.Point, r int) *annotation.Mask {
	var pts []image.Point
	for y := max(0, c.Y-r); y <= min(height-1, c.Y+r); y++ {
		for x := max(0, c.X-r); x <= min(width-1, c.X+r); x++ {
			dx, dy := x-c.X, y-c.Y
			if dx*dx+dy*dy <= r*r {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	return Mask(width, height, category, pts...)
}
