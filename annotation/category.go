// Package annotation 维护单张图像的掩码数据模型：类别、掩码实体和数据集合。
package annotation

import (
	"image/color"
	"strconv"
)

// 保留的类别 id
const (
	UndefinedID = -1
	PromptID    = -2
)

var (
	UndefinedColor     = color.RGBA{R: 0xFF, A: 0xFF}
	PromptColor        = color.RGBA{R: 0x14, G: 0x91, B: 0xFF, A: 0xFF}
	FocusColor         = color.RGBA{B: 0xFF, A: 0xFF}
	DefaultTextColor   = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	PositivePointColor = color.RGBA{G: 0xFF, A: 0xFF}
	NegativePointColor = color.RGBA{R: 0xFF, A: 0xFF}
)

var white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
var black = color.RGBA{A: 0xFF}

var palette = []color.RGBA{
	{R: 0xF6, G: 0xC3, B: 0xCB, A: 0xFF},
	{R: 0xFF, G: 0xA5, B: 0x00, A: 0xFF},
	{R: 0x22, G: 0x54, B: 0x37, A: 0xFF},
	{R: 0xF7, G: 0xD9, B: 0x41, A: 0xFF},
	{R: 0x73, G: 0xFB, B: 0xFE, A: 0xFF},
	{R: 0x9E, G: 0xFC, B: 0xD6, A: 0xFF},
	{R: 0x2B, G: 0x00, B: 0xF7, A: 0xFF},
	{R: 0xF2, G: 0xAA, B: 0x34, A: 0xFF},
	{R: 0xEF, G: 0x7C, B: 0x76, A: 0xFF},
	{R: 0xBA, G: 0xDF, B: 0xE5, A: 0xFF},
	{R: 0xBE, G: 0xD9, B: 0x66, A: 0xFF},
	{R: 0xCC, G: 0xE1, B: 0xFD, A: 0xFF},
	{R: 0xF1, G: 0x88, B: 0xE9, A: 0xFF},
	{R: 0x6C, G: 0xFB, B: 0x45, A: 0xFF},
	{R: 0x7F, G: 0xCB, B: 0xAC, A: 0xFF},
	{R: 0xC9, G: 0xBF, B: 0xB6, A: 0xFF},
	{R: 0x16, G: 0x32, B: 0x63, A: 0xFF},
	{R: 0x75, G: 0x16, B: 0x08, A: 0xFF},
	{R: 0x54, G: 0xAF, B: 0xAA, A: 0xFF},
	{R: 0x5F, G: 0x0F, B: 0x63, A: 0xFF},
}

// text colour per palette slot
var textPalette = []color.RGBA{
	white, black, white, white, black, black, black, white, black, black,
	black, black, black, black, black, black, black, white, white, white,
}

// Category 掩码类别，名称等信息由 Registry 持有
type Category struct {
	ID int
}

// Undefined 未定义类别
func Undefined() Category { return Category{ID: UndefinedID} }

// IsUndefined 是否为未定义类别
func (c Category) IsUndefined() bool { return c.ID == UndefinedID }

// IsPrompt 是否为提示中的候选类别
func (c Category) IsPrompt() bool { return c.ID == PromptID }

// Label 徽标上显示的短文本
func (c Category) Label() string { return strconv.Itoa(c.ID) }

// FillColor 填充颜色
func (c Category) FillColor() color.RGBA { return FillColor(c.ID) }

// BorderColor 边框颜色
func (c Category) BorderColor() color.RGBA { return BorderColor(c.ID) }

// TextColor 文字颜色
func (c Category) TextColor() color.RGBA { return TextColor(c.ID) }

func paletteIndex(id int) int {
	n := len(palette)
	return ((id % n) + n) % n
}

// FillColor 由类别 id 决定的填充颜色
func FillColor(id int) color.RGBA {
	switch id {
	case UndefinedID:
		return UndefinedColor
	case PromptID:
		return PromptColor
	}
	return palette[paletteIndex(id)]
}

// BorderColor 由类别 id 决定的边框颜色
func BorderColor(id int) color.RGBA {
	return FillColor(id)
}

// TextColor 由类别 id 决定的文字颜色
func TextColor(id int) color.RGBA {
	switch id {
	case UndefinedID, PromptID:
		return DefaultTextColor
	}
	return textPalette[paletteIndex(id)]
}
