// 指示: miu200521358
// Package memory はメモリ上で動作するリグ生成先ホストを提供する。
package memory

import (
	"fmt"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// Widget はカスタムシェイプ用オブジェクトを表す。
type Widget struct {
	ID         *descriptor.ID
	Collection string
}

// Text はテキストブロックを表す。
type Text struct {
	ID   *descriptor.ID
	Body string
}

// Scene はメモリ上のシーンを表す。
type Scene struct {
	armatures *descriptor.IDCollection[*Armature]
	linked    map[string]bool
	widgets   *descriptor.IDCollection[*Widget]
	texts     *descriptor.IDCollection[*Text]
}

// NewScene は空のシーンを生成する。
func NewScene() *Scene {
	return &Scene{
		armatures: descriptor.NewIDCollection(func(name string) *Armature {
			return newArmature(name)
		}),
		linked: map[string]bool{},
		widgets: descriptor.NewIDCollection(func(name string) *Widget {
			return &Widget{ID: descriptor.NewID(name, descriptor.ID_TYPE_OBJECT)}
		}),
		texts: descriptor.NewIDCollection(func(name string) *Text {
			return &Text{ID: descriptor.NewID(name, descriptor.ID_TYPE_TEXT)}
		}),
	}
}

// Armature はシーンにリンク済みのアーマチュアを取得する。
func (s *Scene) Armature(name string) (mhost.IArmature, bool) {
	if !s.linked[name] {
		return nil, false
	}
	return s.FileArmature(name)
}

// FileArmature はファイル全体からアーマチュアを取得する。
func (s *Scene) FileArmature(name string) (mhost.IArmature, bool) {
	arm, ok := s.armatures.Get(name)
	if !ok {
		return nil, false
	}
	return arm, true
}

// ArmatureByName は具象型でアーマチュアを取得する。
func (s *Scene) ArmatureByName(name string) *Armature {
	arm, _ := s.armatures.Get(name)
	return arm
}

// NewArmature はシーン未リンクのアーマチュアを生成する。名前衝突時は連番を付ける。
func (s *Scene) NewArmature(name string) (mhost.IArmature, error) {
	if name == "" {
		return nil, fmt.Errorf("アーマチュア名が空です")
	}
	unique := uniqueName(name, s.armatures.Has)
	if unique != name {
		logMemoryDebug("アーマチュア名が衝突したため変更しました: %s -> %s", name, unique)
	}
	return s.armatures.Ensure(unique), nil
}

// AddArmature はオブジェクトを追加し、シーンへリンクする。
func (s *Scene) AddArmature(name string) *Armature {
	arm := s.armatures.Ensure(name)
	s.linked[name] = true
	return arm
}

// LinkArmature はアーマチュアをシーンへリンクする。
func (s *Scene) LinkArmature(armature mhost.IArmature) error {
	arm, ok := s.armatures.Get(armature.Name())
	if !ok || mhost.IArmature(arm) != armature {
		return fmt.Errorf("%w: アーマチュアがシーンに属していません: %s", merr.ErrNotFound, armature.Name())
	}
	s.linked[arm.Name()] = true
	return nil
}

// UnlinkArmature はアーマチュアをシーンから外す。ファイルには残る。
func (s *Scene) UnlinkArmature(name string) {
	delete(s.linked, name)
}

// IsLinked はシーンにリンク済みか返す。
func (s *Scene) IsLinked(name string) bool {
	return s.linked[name]
}

// ArmatureNames は生成順のアーマチュア名を返す。
func (s *Scene) ArmatureNames() []string {
	return s.armatures.Names()
}

// EnsureWidget はウィジェットを取得し、なければ生成する。
func (s *Scene) EnsureWidget(name string, collection string) (*descriptor.ID, error) {
	if name == "" {
		return nil, fmt.Errorf("ウィジェット名が空です")
	}
	if w, ok := s.widgets.Get(name); ok {
		return w.ID, nil
	}
	w := s.widgets.Ensure(name)
	w.Collection = collection
	return w.ID, nil
}

// WidgetNames は生成順のウィジェット名を返す。
func (s *Scene) WidgetNames() []string {
	return s.widgets.Names()
}

// EnsureText はテキストブロックを生成または上書きする。
func (s *Scene) EnsureText(name string, body string) (*descriptor.ID, error) {
	if name == "" {
		return nil, fmt.Errorf("テキスト名が空です")
	}
	text := s.texts.Ensure(name)
	text.Body = body
	return text.ID, nil
}

// Text はテキストブロック本文を返す。
func (s *Scene) Text(name string) (string, bool) {
	text, ok := s.texts.Get(name)
	if !ok {
		return "", false
	}
	return text.Body, true
}

// lookupID は種別と名前からシーン内のIDを引く。
func (s *Scene) lookupID(idType descriptor.IDType, name string) *descriptor.ID {
	switch idType {
	case descriptor.ID_TYPE_TEXT:
		if text, ok := s.texts.Get(name); ok {
			return text.ID
		}
	default:
		if arm, ok := s.armatures.Get(name); ok {
			return arm.ID()
		}
		if w, ok := s.widgets.Get(name); ok {
			return w.ID
		}
	}
	return nil
}

// uniqueName は衝突しない名前を .001 形式の連番で求める。
func uniqueName(name string, exists func(string) bool) string {
	if !exists(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if !exists(candidate) {
			return candidate
		}
	}
}

// logMemoryDebug はメモリホストのデバッグログを出力する。
func logMemoryDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}

// logMemoryWarn はメモリホストの警告ログを出力する。
func logMemoryWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}
