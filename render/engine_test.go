package render

import (
	"bytes"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/annotation/annotationtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testWidth  = 64
	testHeight = 48
)

type layerState [3][]byte

func snapshot(e *Engine) layerState {
	return layerState{
		bytes.Clone(e.Fill().Pix),
		bytes.Clone(e.Border().Pix),
		bytes.Clone(e.Text().Pix),
	}
}

func requireSameLayers(t *testing.T, want, got layerState, msg string) {
	t.Helper()
	for i, name := range []string{"fill", "border", "text"} {
		require.True(t, bytes.Equal(want[i], got[i]), "%s: %s layer differs", msg, name)
	}
}

func randomMask(r *rand.Rand) *annotation.Mask {
	cat := r.Intn(7) - 1
	c := image.Pt(r.Intn(testWidth), r.Intn(testHeight))
	switch r.Intn(5) {
	case 0:
		return annotationtest.Mask(testWidth, testHeight, cat)
	case 1, 2:
		return annotationtest.Disk(testWidth, testHeight, cat, c, 2+r.Intn(10))
	default:
		return annotationtest.Rect(testWidth, testHeight, cat,
			image.Rect(c.X, c.Y, c.X+1+r.Intn(20), c.Y+1+r.Intn(16)).Intersect(image.Rect(0, 0, testWidth, testHeight)))
	}
}

func TestIncrementalMatchesFullRedraw(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	selected := map[*annotation.Mask]bool{}
	highlight := func(m *annotation.Mask) bool { return selected[m] }

	inc := New(testWidth, testHeight, WithHighlighter(highlight))
	full := New(testWidth, testHeight, WithIncremental(false), WithHighlighter(highlight))

	var masks []*annotation.Mask
	for i := 0; i < 6; i++ {
		masks = append(masks, randomMask(r))
	}

	for step := 0; step < 300; step++ {
		switch op := r.Intn(9); {
		case op == 0 || len(masks) == 0:
			m := randomMask(r)
			at := r.Intn(len(masks) + 1)
			masks = append(masks[:at], append([]*annotation.Mask{m}, masks[at:]...)...)
		case op == 1:
			i := r.Intn(len(masks))
			masks = append(masks[:i], masks[i+1:]...)
		case op == 2:
			m := masks[r.Intn(len(masks))]
			if m.SetCategory(annotation.Category{ID: r.Intn(7) - 1}) {
				m.MarkModified()
			}
		case op == 3:
			m := masks[r.Intn(len(masks))]
			if m.SetVisible(!m.Visible()) {
				m.MarkModified()
			}
		case op == 4:
			// visibility flipped without marking the mask
			m := masks[r.Intn(len(masks))]
			m.SetVisible(!m.Visible())
		case op == 5:
			m := masks[r.Intn(len(masks))]
			selected[m] = !selected[m]
			m.MarkModified()
		case op == 6:
			i, j := r.Intn(len(masks)), r.Intn(len(masks))
			masks[i], masks[j] = masks[j], masks[i]
		case op == 7:
			masks[r.Intn(len(masks))] = randomMask(r)
		default:
			// no change
		}

		inc.Update(masks)
		full.Update(masks)
		requireSameLayers(t, snapshot(full), snapshot(inc), "step")
	}
}

func TestUpdateIdempotent(t *testing.T) {
	e := New(testWidth, testHeight)
	masks := []*annotation.Mask{
		annotationtest.Disk(testWidth, testHeight, 1, image.Pt(20, 20), 8),
		annotationtest.Rect(testWidth, testHeight, 2, image.Rect(15, 15, 40, 30)),
		annotationtest.Disk(testWidth, testHeight, annotation.UndefinedID, image.Pt(50, 10), 5),
	}
	e.Update(masks)
	before := snapshot(e)
	rev := e.Revision()

	e.Update(masks)
	requireSameLayers(t, before, snapshot(e), "second update")
	assert.Equal(t, rev, e.Revision())
	for _, m := range masks {
		assert.False(t, m.Modified())
	}
}

func TestAddThenRemoveRestoresLayers(t *testing.T) {
	e := New(testWidth, testHeight)
	base := []*annotation.Mask{
		annotationtest.Disk(testWidth, testHeight, 1, image.Pt(20, 20), 8),
		annotationtest.Rect(testWidth, testHeight, 4, image.Rect(30, 10, 50, 40)),
	}
	e.Update(base)
	before := snapshot(e)

	extra := annotationtest.Disk(testWidth, testHeight, 3, image.Pt(28, 22), 9)
	e.Update(append(append([]*annotation.Mask{}, base...), extra))
	assert.NotEqual(t, before[0], e.Fill().Pix)

	e.Update(base)
	requireSameLayers(t, before, snapshot(e), "after removal")
}

func TestHiddenMaskIsErased(t *testing.T) {
	e := New(testWidth, testHeight)
	m := annotationtest.Rect(testWidth, testHeight, 2, image.Rect(5, 5, 20, 20))
	e.Update([]*annotation.Mask{m})
	assert.Equal(t, uint8(0xFF), e.Fill().RGBAAt(10, 10).A)

	m.SetVisible(false)
	m.MarkModified()
	e.Update([]*annotation.Mask{m})
	for _, layer := range e.Layers() {
		assert.True(t, isBlank(layer))
	}
}

func TestUndefinedCategoryHasNoText(t *testing.T) {
	e := New(testWidth, testHeight)
	m := annotationtest.Disk(testWidth, testHeight, annotation.UndefinedID, image.Pt(30, 30), 6)
	e.Update([]*annotation.Mask{m})
	assert.True(t, isBlank(e.Text()))
	assert.False(t, isBlank(e.Fill()))
	assert.Equal(t, annotation.UndefinedColor, e.Fill().RGBAAt(30, 30))
}

func TestEmptyMaskIsSkipped(t *testing.T) {
	e := New(testWidth, testHeight)
	m := annotationtest.Mask(testWidth, testHeight, 3)
	e.Update([]*annotation.Mask{m})
	for _, layer := range e.Layers() {
		assert.True(t, isBlank(layer))
	}
}

func TestBadgeStaysInsideEraseDisk(t *testing.T) {
	e := New(testWidth, testHeight)
	m := annotationtest.Disk(testWidth, testHeight, 12, image.Pt(32, 24), 10)
	e.Update([]*annotation.Mask{m})
	require.False(t, isBlank(e.Text()))

	c, ok := m.Centroid()
	require.True(t, ok)
	half := e.geom.badgeRadius / 2
	bx, by := float64(c.X)+half, float64(c.Y)-half
	limit := float64(e.geom.eraseRadius) + 1
	b := e.Text().Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if e.Text().RGBAAt(x, y).A == 0 {
				continue
			}
			d := math.Hypot(float64(x)+0.5-bx, float64(y)+0.5-by)
			assert.LessOrEqual(t, d, limit, "pixel (%d,%d)", x, y)
		}
	}
}

func TestHighlighterUsesFocusColor(t *testing.T) {
	m := annotationtest.Rect(testWidth, testHeight, 2, image.Rect(0, 0, 4, 4))
	e := New(testWidth, testHeight, WithHighlighter(func(x *annotation.Mask) bool { return x == m }))
	e.Update([]*annotation.Mask{m})
	assert.Equal(t, annotation.FocusColor, e.Fill().RGBAAt(1, 1))
	assert.Equal(t, annotation.FillColor(2), e.Border().RGBAAt(3, 0))
}

func TestMismatchedMaskIgnored(t *testing.T) {
	e := New(testWidth, testHeight)
	e.Update([]*annotation.Mask{annotationtest.Rect(8, 8, 1, image.Rect(0, 0, 4, 4))})
	assert.True(t, isBlank(e.Fill()))
}

func TestResetAndClear(t *testing.T) {
	e := New(testWidth, testHeight)
	m := annotationtest.Rect(testWidth, testHeight, 2, image.Rect(5, 5, 20, 20))
	e.Update([]*annotation.Mask{m})

	e.Clear()
	assert.True(t, isBlank(e.Fill()))
	// forgotten masks are drawn again
	e.Update([]*annotation.Mask{m})
	assert.False(t, isBlank(e.Fill()))

	e.Reset(10, 20)
	assert.Equal(t, image.Rect(0, 0, 10, 20), e.Fill().Bounds())
	assert.True(t, isBlank(e.Fill()))
}

func TestGeometry(t *testing.T) {
	g := newGeometry(1000, 800)
	assert.Equal(t, 1, g.dotRadius)
	assert.Len(t, g.dot, 5)
	assert.Equal(t, 32, g.fontSize)
	assert.InDelta(t, 22.4, g.badgeRadius, 1e-9)
	assert.Equal(t, 30, g.eraseRadius)

	g = newGeometry(3000, 2000)
	assert.Equal(t, 3, g.dotRadius)
	assert.Equal(t, 40, g.fontSize)
	assert.InDelta(t, 28, g.badgeRadius, 1e-9)
	assert.Equal(t, 37, g.eraseRadius)

	// small images keep a legible badge
	g = newGeometry(64, 48)
	assert.Equal(t, 1, g.fontSize)
	assert.Equal(t, 8.0, g.badgeRadius)
}

func isBlank(img *image.RGBA) bool {
	for _, v := range img.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// gridMasks 在 width×height 图像上按 spacing 间隔排列 side×side 的方块
func gridMasks(width, height, side, spacing, count int) []*annotation.Mask {
	var masks []*annotation.Mask
	for y := spacing / 2; y+side < height && len(masks) < count; y += spacing {
		for x := spacing / 2; x+side < width && len(masks) < count; x += spacing {
			masks = append(masks, annotationtest.Rect(width, height, len(masks)%5,
				image.Rect(x, y, x+side, y+side)))
		}
	}
	return masks
}

func TestOneMaskUpdateTouchesOnlyItsFootprint(t *testing.T) {
	const w, h = 400, 300
	masks := gridMasks(w, h, 10, 40, 40)
	require.Len(t, masks, 40)

	inc := New(w, h)
	full := New(w, h, WithIncremental(false))
	inc.Update(masks)
	full.Update(masks)

	target := masks[17]
	target.SetCategory(annotation.Category{ID: 4})
	target.MarkModified()
	inc.Update(masks)
	target.MarkModified()
	full.Update(masks)
	requireSameLayers(t, snapshot(full), snapshot(inc), "after recategorise")

	st := inc.Stats()
	assert.False(t, st.Full)
	assert.Positive(t, st.Damaged)
	// fill 100 + border ring + badge disk, far below the image area
	assert.Less(t, st.Damaged, 1500)
	assert.LessOrEqual(t, st.Repainted, 3)

	// nothing changed: no work at all
	inc.Update(masks)
	assert.Equal(t, UpdateStats{}, inc.Stats())
}

func TestMismatchedMaskWarnsOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := New(testWidth, testHeight, WithLogger(zap.New(core)))
	masks := []*annotation.Mask{annotationtest.Rect(8, 8, 1, image.Rect(0, 0, 4, 4))}
	for range 3 {
		e.Update(masks)
	}
	assert.Equal(t, 1, logs.FilterMessage("mask size does not match image").Len())

	// a new image forgets reported masks
	e.Reset(testWidth, testHeight)
	e.Update(masks)
	assert.Equal(t, 2, logs.FilterMessage("mask size does not match image").Len())
}

func benchmarkOneMaskUpdate(b *testing.B, incremental bool) {
	const w, h = 2000, 1500
	masks := gridMasks(w, h, 30, 200, 60)
	e := New(w, h, WithIncremental(incremental))
	e.Update(masks)
	target := masks[len(masks)/2]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		target.SetCategory(annotation.Category{ID: i % 5})
		target.MarkModified()
		e.Update(masks)
	}
}

func BenchmarkOneMaskUpdateIncremental(b *testing.B) { benchmarkOneMaskUpdate(b, true) }

func BenchmarkOneMaskUpdateFullRedraw(b *testing.B) { benchmarkOneMaskUpdate(b, false) }
