package rle

import "fmt"

// DecodeCounts 解析 pycocotools 的压缩 counts 字符串，返回列优先游程
func DecodeCounts(s string) ([]int, error) {
	counts := make([]int, 0, len(s)/2)
	p := 0
	for p < len(s) {
		x := 0
		k := 0
		more := true
		for more {
			if p >= len(s) {
				return nil, fmt.Errorf("truncated at byte %d: %w", p, ErrBadCounts)
			}
			c := int(s[p]) - 48
			if c < 0 || c > 63 {
				return nil, fmt.Errorf("byte %q at %d: %w", s[p], p, ErrBadCounts)
			}
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if m := len(counts); m > 2 {
			x += counts[m-2]
		}
		counts = append(counts, x)
	}
	return counts, nil
}

// EncodeCounts 生成 pycocotools 兼容的压缩 counts 字符串
func EncodeCounts(counts []int) string {
	out := make([]byte, 0, len(counts)*2)
	for i, x := range counts {
		if i > 2 {
			x -= counts[i-2]
		}
		more := true
		for more {
			c := x & 0x1f
			x >>= 5
			if c&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				c |= 0x20
			}
			out = append(out, byte(c+48))
		}
	}
	return string(out)
}

// Transpose 将 height×width 图像的列优先游程转换为行优先游程
func Transpose(runs []int, height, width int) ([]int, error) {
	colMajor, err := Decode(runs, height*width)
	if err != nil {
		return nil, err
	}
	rowMajor := make([]uint8, len(colMajor))
	for x := 0; x < width; x++ {
		col := colMajor[x*height : (x+1)*height]
		for y, v := range col {
			rowMajor[y*width+x] = v
		}
	}
	return Encode(rowMajor), nil
}
