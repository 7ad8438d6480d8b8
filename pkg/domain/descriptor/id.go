// 指示: miu200521358
// Package descriptor はホスト実体を持たない記述子の基本型を提供する。
package descriptor

import (
	"fmt"
)

// IDType はIDが指すホスト実体の種別を表す。
type IDType string

const (
	// ID_TYPE_OBJECT はオブジェクト。
	ID_TYPE_OBJECT IDType = "OBJECT"
	// ID_TYPE_ARMATURE はアーマチュアデータ。
	ID_TYPE_ARMATURE IDType = "ARMATURE"
	// ID_TYPE_TEXT はテキストブロック。
	ID_TYPE_TEXT IDType = "TEXT"
)

// ID は名前で識別されるホスト実体を表す。
// 同一実体はポインタ同一性で比較する。
type ID struct {
	Name string
	Type IDType
}

// NewID はIDを生成する。
func NewID(name string, idType IDType) *ID {
	return &ID{Name: name, Type: idType}
}

// String は表示文字列を返す。
func (id *ID) String() string {
	if id == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", id.Type, id.Name)
}

// IDCollection は名前で一意な順序付きコレクションを表す。
type IDCollection[T any] struct {
	keys    []string
	values  []T
	indexes map[string]int
	factory func(name string) T
}

// NewIDCollection はIDCollectionを生成する。factoryはEnsureでの生成に使う。
func NewIDCollection[T any](factory func(name string) T) *IDCollection[T] {
	return &IDCollection[T]{
		indexes: map[string]int{},
		factory: factory,
	}
}

func (c *IDCollection[T]) initIndexes() {
	if c.indexes == nil {
		c.indexes = map[string]int{}
	}
}

// Get は名前で要素を取得する。
func (c *IDCollection[T]) Get(name string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	idx, ok := c.indexes[name]
	if !ok {
		return zero, false
	}
	return c.values[idx], true
}

// Has は名前が存在するか返す。
func (c *IDCollection[T]) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Ensure は既存要素を返すか、factoryで生成して末尾に追加する。
func (c *IDCollection[T]) Ensure(name string) T {
	if v, ok := c.Get(name); ok {
		return v
	}
	v := c.factory(name)
	c.Set(name, v)
	return v
}

// Set は要素を設定する。既存名なら同じ位置で置き換える。
func (c *IDCollection[T]) Set(name string, value T) {
	c.initIndexes()
	if idx, ok := c.indexes[name]; ok {
		c.values[idx] = value
		return
	}
	c.indexes[name] = len(c.values)
	c.keys = append(c.keys, name)
	c.values = append(c.values, value)
}

// Remove は要素を削除する。
func (c *IDCollection[T]) Remove(name string) bool {
	idx, ok := c.indexes[name]
	if !ok {
		return false
	}
	c.keys = append(c.keys[:idx], c.keys[idx+1:]...)
	c.values = append(c.values[:idx], c.values[idx+1:]...)
	delete(c.indexes, name)
	for i := idx; i < len(c.keys); i++ {
		c.indexes[c.keys[i]] = i
	}
	return true
}

// Rename は要素名を変更する。変更先が既に存在する場合はエラー。
func (c *IDCollection[T]) Rename(oldName string, newName string) error {
	idx, ok := c.indexes[oldName]
	if !ok {
		return fmt.Errorf("名前が見つかりません: %s", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := c.indexes[newName]; exists {
		return fmt.Errorf("名前が重複しています: %s", newName)
	}
	delete(c.indexes, oldName)
	c.keys[idx] = newName
	c.indexes[newName] = idx
	return nil
}

// Names は登録順の名前一覧を返す。
func (c *IDCollection[T]) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Values は登録順の要素一覧を返す。
func (c *IDCollection[T]) Values() []T {
	if c == nil {
		return nil
	}
	return append([]T(nil), c.values...)
}

// Len は要素数を返す。
func (c *IDCollection[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.values)
}
