package session

import (
	"errors"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/model"
)

var (
	ErrNothingToUndo = errors.New("session: nothing to undo")
	ErrNothingToRedo = errors.New("session: nothing to redo")
)

// DefaultHistorySize 默认保留的历史记录数
const DefaultHistorySize = 10

// Record 某一时刻的数据与类别快照
type Record struct {
	Data       *annotation.Data
	Categories []model.CategoryInfo
}

// DeepCopy 掩码和类别都被复制
func (r Record) DeepCopy() Record {
	out := Record{Categories: append([]model.CategoryInfo(nil), r.Categories...)}
	if r.Data != nil {
		out.Data = r.Data.DeepCopy()
	}
	return out
}

// History 有界的撤销/重做栈
type History struct {
	undo []Record
	redo []Record
	max  int
}

func NewHistory(maxRecords int) *History {
	if maxRecords <= 0 {
		maxRecords = DefaultHistorySize
	}
	return &History{max: maxRecords}
}

func (h *History) pushUndo(rec Record) {
	h.undo = append(h.undo, rec)
	if len(h.undo) > h.max {
		h.undo = h.undo[len(h.undo)-h.max:]
	}
}

// Push 记录修改前的状态，并清空重做栈
func (h *History) Push(rec Record) {
	h.pushUndo(rec.DeepCopy())
	h.redo = nil
}

// Undo 返回上一个状态，current 进入重做栈
func (h *History) Undo(current Record) (Record, error) {
	if !h.CanUndo() {
		return Record{}, ErrNothingToUndo
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.DeepCopy())
	return prev, nil
}

// Redo 返回下一个状态，current 回到撤销栈
func (h *History) Redo(current Record) (Record, error) {
	if !h.CanRedo() {
		return Record{}, ErrNothingToRedo
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.pushUndo(current.DeepCopy())
	return next, nil
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Len 撤销栈与重做栈的长度
func (h *History) Len() (int, int) { return len(h.undo), len(h.redo) }
