package annotation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TIANLI0/reefmask/model"
)

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDuplicateCategory = errors.New("duplicate category")
)

// Registry 当前项目的类别注册表，id 唯一
type Registry struct {
	categories map[int]model.CategoryInfo
}

func NewRegistry(infos []model.CategoryInfo) *Registry {
	r := &Registry{}
	r.Replace(infos)
	return r
}

// Replace 整体替换类别列表（加载项目或历史记录时）
func (r *Registry) Replace(infos []model.CategoryInfo) {
	r.categories = make(map[int]model.CategoryInfo, len(infos))
	for _, info := range infos {
		r.categories[info.ID] = info
	}
}

// Snapshot 按 id 排序的类别列表副本
func (r *Registry) Snapshot() []model.CategoryInfo {
	out := make([]model.CategoryInfo, 0, len(r.categories))
	for _, info := range r.categories {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Categories 按 id 排序的全部类别
func (r *Registry) Categories() []Category {
	infos := r.Snapshot()
	out := make([]Category, len(infos))
	for i, info := range infos {
		out[i] = Category{ID: info.ID}
	}
	return out
}

func (r *Registry) Contains(id int) bool {
	_, ok := r.categories[id]
	return ok
}

func (r *Registry) Lookup(id int) (model.CategoryInfo, bool) {
	info, ok := r.categories[id]
	return info, ok
}

// Name 类别名称，未注册时返回空串
func (r *Registry) Name(id int) string {
	return r.categories[id].Name
}

// SuperCategory 父类别名称
func (r *Registry) SuperCategory(id int) string {
	return r.categories[id].SuperCategory
}

func (r *Registry) containsName(name string) bool {
	for _, info := range r.categories {
		if info.Name == name {
			return true
		}
	}
	return false
}

// Add 以最小可用 id 新增类别
func (r *Registry) Add(name string) (Category, error) {
	return r.AddWithID(name, r.availableID())
}

// AddWithID 以指定 id 新增类别
func (r *Registry) AddWithID(name string, id int) (Category, error) {
	if r.containsName(name) {
		return Category{}, fmt.Errorf("category name %q: %w", name, ErrDuplicateCategory)
	}
	if r.Contains(id) {
		return Category{}, fmt.Errorf("category id %d: %w", id, ErrDuplicateCategory)
	}
	r.categories[id] = model.CategoryInfo{ID: id, Name: name, SuperCategory: name}
	return Category{ID: id}, nil
}

// Rename 修改名称和父类别名称，id 与颜色不变
func (r *Registry) Rename(id int, name string) error {
	info, ok := r.categories[id]
	if !ok {
		return fmt.Errorf("category %d: %w", id, ErrUnknownCategory)
	}
	info.Name = name
	info.SuperCategory = name
	r.categories[id] = info
	return nil
}

func (r *Registry) Remove(id int) error {
	if !r.Contains(id) {
		return fmt.Errorf("category %d: %w", id, ErrUnknownCategory)
	}
	delete(r.categories, id)
	return nil
}

func (r *Registry) availableID() int {
	id := 0
	for r.Contains(id) {
		id++
	}
	return id
}
