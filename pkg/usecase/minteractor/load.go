// 指示: miu200521358
package minteractor

import (
	"fmt"
	"strings"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/moutput"
)

// LoadMetarig はメタリグを読み込む。
func (uc *CloudGenerator) LoadMetarig(rep moutput.IMetarigReader, path string) (*metarig.Metarig, error) {
	repo := rep
	if repo == nil {
		repo = uc.metarigReader
	}
	if repo == nil {
		return nil, fmt.Errorf("メタリグ読み込みリポジトリが設定されていません")
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("メタリグパスが未指定です")
	}
	if !repo.CanLoad(path) {
		return nil, fmt.Errorf("メタリグとして読み込めない拡張子です: %s", path)
	}
	meta, err := repo.Load(path)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("メタリグ読み込み結果が空です")
	}
	if meta.Name == "" {
		meta.Name = repo.InferName(path)
	}
	return meta, nil
}

// LoadScene は生成先シーンを読み込む。
func (uc *CloudGenerator) LoadScene(store moutput.ISceneStore) (mhost.IScene, error) {
	repo := store
	if repo == nil {
		repo = uc.sceneStore
	}
	if repo == nil {
		return nil, fmt.Errorf("シーン保存先が設定されていません")
	}
	scene, err := repo.LoadScene()
	if err != nil {
		return nil, fmt.Errorf("シーンの読み込みに失敗しました: %w", err)
	}
	return scene, nil
}

// resolveMetarig は生成対象メタリグを解決し、検証する。
func (uc *CloudGenerator) resolveMetarig(rep moutput.IMetarigReader, path string, meta *metarig.Metarig) (*metarig.Metarig, error) {
	resolved := meta
	if resolved == nil {
		loaded, err := uc.LoadMetarig(rep, path)
		if err != nil {
			return nil, err
		}
		resolved = loaded
	}
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("メタリグが不正です: %w", err)
	}
	return resolved, nil
}
