// 指示: miu200521358
package minteractor

import (
	"fmt"

	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/moutput"
)

// SaveScene は生成後のシーンを保存する。
func (uc *CloudGenerator) SaveScene(store moutput.ISceneStore, scene mhost.IScene) error {
	repo := store
	if repo == nil {
		repo = uc.sceneStore
	}
	if repo == nil {
		return fmt.Errorf("シーン保存先が設定されていません")
	}
	if scene == nil {
		return fmt.Errorf("保存対象シーンが未設定です")
	}
	if err := repo.SaveScene(scene); err != nil {
		return fmt.Errorf("シーンの保存に失敗しました: %w", err)
	}
	return nil
}
