// 指示: miu200521358
package memory

// boneGroup は実在するボーングループを表す。
type boneGroup struct {
	name  string
	props map[string]any
}

func newBoneGroup(name string) *boneGroup {
	return &boneGroup{name: name, props: boneGroupSchema.defaults()}
}

// groupHandle はボーングループハンドル。
type groupHandle struct {
	arm   *Armature
	group *boneGroup
}

// Name はグループ名を返す。
func (h *groupHandle) Name() string {
	return h.group.name
}

// Set はグループプロパティを設定する。
func (h *groupHandle) Set(prop string, value any) error {
	if err := h.arm.fault(prop); err != nil {
		return err
	}
	v, err := boneGroupSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	h.group.props[prop] = v
	return nil
}

// Get はグループプロパティを取得する。
func (h *groupHandle) Get(prop string) (any, bool) {
	v, ok := h.group.props[prop]
	return copyValue(v), ok
}
