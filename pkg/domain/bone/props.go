// 指示: miu200521358
package bone

// Prop はホストへ書き込むプロパティ名と値の組を表す。
type Prop struct {
	Name  string
	Value any
}

// EditProps は編集モードで書き込むフィールドを書き込み順で返す。
// 参照系(親・ハンドル)は含まない。
func (b *BoneInfo) EditProps() []Prop {
	width := b.AbsoluteBBoneWidth()
	return []Prop{
		{Name: "head", Value: b.Head},
		{Name: "tail", Value: b.Tail},
		{Name: "roll", Value: b.Roll},
		{Name: "bbone_x", Value: width},
		{Name: "bbone_z", Value: width},
		{Name: "bbone_segments", Value: b.BBoneSegments},
		{Name: "bbone_curveinx", Value: b.BBoneCurveInX},
		{Name: "bbone_curveinz", Value: b.BBoneCurveInZ},
		{Name: "bbone_curveoutx", Value: b.BBoneCurveOutX},
		{Name: "bbone_curveoutz", Value: b.BBoneCurveOutZ},
		{Name: "bbone_rollin", Value: b.BBoneRollIn},
		{Name: "bbone_rollout", Value: b.BBoneRollOut},
		{Name: "bbone_easein", Value: b.BBoneEaseIn},
		{Name: "bbone_easeout", Value: b.BBoneEaseOut},
		{Name: "bbone_scalein", Value: b.BBoneScaleIn},
		{Name: "bbone_scaleout", Value: b.BBoneScaleOut},
		{Name: "bbone_handle_type_start", Value: b.BBoneHandleTypeStart},
		{Name: "bbone_handle_type_end", Value: b.BBoneHandleTypeEnd},
		{Name: "envelope_distance", Value: b.EnvelopeDistance},
		{Name: "envelope_weight", Value: b.EnvelopeWeight},
		{Name: "head_radius", Value: b.HeadRadius},
		{Name: "tail_radius", Value: b.TailRadius},
		{Name: "use_deform", Value: b.UseDeform},
		{Name: "use_connect", Value: b.UseConnect},
		{Name: "use_local_location", Value: b.UseLocalLocation},
		{Name: "use_inherit_rotation", Value: b.UseInheritRotation},
		{Name: "use_endroll_as_inroll", Value: b.UseEndroll},
		{Name: "inherit_scale", Value: b.InheritScale},
		{Name: "layers", Value: bools(b.Layers[:])},
	}
}

// PoseProps はポーズモードで書き込むフィールドを書き込み順で返す。
// カスタムシェイプとグループは解決が必要なため含まない。
func (b *BoneInfo) PoseProps() []Prop {
	return []Prop{
		{Name: "rotation_mode", Value: b.RotationMode},
		{Name: "lock_location", Value: bools(b.LockLocation[:])},
		{Name: "lock_rotation", Value: bools(b.LockRotation[:])},
		{Name: "lock_rotation_w", Value: b.LockRotationW},
		{Name: "lock_scale", Value: bools(b.LockScale[:])},
		{Name: "custom_shape_scale", Value: b.CustomShapeScale},
	}
}

// DataProps はポーズモードでボーンデータへ書き込むフィールドを返す。
func (b *BoneInfo) DataProps() []Prop {
	return []Prop{
		{Name: "hide_select", Value: b.HideSelect},
	}
}

func bools(values []bool) []bool {
	return append([]bool(nil), values...)
}
