// Package rle 实现掩码的游程编码与解码。
//
// 游程按行优先顺序展开，从背景(0)开始，每个游程结束后在 0 和 1 之间切换。
package rle

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeRun  = errors.New("rle: negative run length")
	ErrRunOverflow  = errors.New("rle: runs exceed pixel count")
	ErrRunUnderflow = errors.New("rle: runs do not cover pixel count")
	ErrBadCounts    = errors.New("rle: malformed compressed counts")
)

// Decode 将游程解码为长度为 pixelCount 的 0/1 缓冲区
func Decode(runs []int, pixelCount int) ([]uint8, error) {
	if pixelCount < 0 {
		return nil, fmt.Errorf("rle: negative pixel count %d", pixelCount)
	}
	buf := make([]uint8, pixelCount)
	index := 0
	var value uint8
	for i, n := range runs {
		if n < 0 {
			return nil, fmt.Errorf("run %d: %w", i, ErrNegativeRun)
		}
		if n > pixelCount-index {
			return nil, fmt.Errorf("run %d reaches %d of %d: %w", i, index+n, pixelCount, ErrRunOverflow)
		}
		if value == 1 {
			fill := buf[index : index+n]
			for j := range fill {
				fill[j] = 1
			}
		}
		index += n
		value ^= 1
	}
	if index != pixelCount {
		return nil, fmt.Errorf("runs cover %d of %d: %w", index, pixelCount, ErrRunUnderflow)
	}
	return buf, nil
}

// Encode 将 0/1 缓冲区编码为游程，首个游程总是背景（可能为 0）
func Encode(buf []uint8) []int {
	runs := make([]int, 0, 8)
	var value uint8
	n := 0
	for _, v := range buf {
		if v != 0 {
			v = 1
		}
		if v != value {
			runs = append(runs, n)
			value = v
			n = 0
		}
		n++
	}
	return append(runs, n)
}

// Count 返回游程中前景像素的个数
func Count(runs []int) int {
	total := 0
	for i := 1; i < len(runs); i += 2 {
		total += runs[i]
	}
	return total
}
