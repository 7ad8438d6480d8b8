// 指示: miu200521358
package metarig

// GenerationOptions は生成全体のオプションを表す。
type GenerationOptions struct {
	CreateRoot        bool    `yaml:"create_root"`
	RootName          string  `yaml:"root_name"`
	PropertiesName    string  `yaml:"properties_name"`
	SideSeparator     string  `yaml:"side_separator"`
	PrefixSeparator   string  `yaml:"prefix_separator"`
	TargetRigName     string  `yaml:"target_rig_name"`
	WidgetCollection  string  `yaml:"widget_collection"`
	OverrideDefLayers bool    `yaml:"override_def_layers"`
	DefLayers         []int   `yaml:"def_layers"`
	OverrideMchLayers bool    `yaml:"override_mch_layers"`
	MchLayers         []int   `yaml:"mch_layers"`
	OverrideOrgLayers bool    `yaml:"override_org_layers"`
	OrgLayers         []int   `yaml:"org_layers"`
	DefaultBBoneWidth float64 `yaml:"default_bbone_width"`
	Scale             float64 `yaml:"scale"`
}

// DefaultGenerationOptions は既定のオプションを返す。
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		CreateRoot:        true,
		RootName:          "root",
		PropertiesName:    "properties",
		SideSeparator:     ".",
		PrefixSeparator:   "-",
		WidgetCollection:  "Widgets",
		DefLayers:         []int{29},
		MchLayers:         []int{30},
		OrgLayers:         []int{31},
		DefaultBBoneWidth: 0.1,
		Scale:             1.0,
	}
}

// Normalize は空値を既定値で補う。
func (o *GenerationOptions) Normalize() {
	defaults := DefaultGenerationOptions()
	if o.RootName == "" {
		o.RootName = defaults.RootName
	}
	if o.PropertiesName == "" {
		o.PropertiesName = defaults.PropertiesName
	}
	if o.SideSeparator == "" {
		o.SideSeparator = defaults.SideSeparator
	}
	if o.PrefixSeparator == "" {
		o.PrefixSeparator = defaults.PrefixSeparator
	}
	if o.WidgetCollection == "" {
		o.WidgetCollection = defaults.WidgetCollection
	}
	if o.DefaultBBoneWidth <= 0 {
		o.DefaultBBoneWidth = defaults.DefaultBBoneWidth
	}
	if o.Scale <= 0 {
		o.Scale = defaults.Scale
	}
}
