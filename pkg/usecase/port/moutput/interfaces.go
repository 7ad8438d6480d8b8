// 指示: miu200521358
package moutput

import (
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// IMetarigReader はメタリグ読み込みの契約を表す。
type IMetarigReader interface {
	// CanLoad は読み込み可能な拡張子か判定する。
	CanLoad(path string) bool
	// InferName はパスからメタリグ名を推定する。
	InferName(path string) string
	Load(path string) (*metarig.Metarig, error)
}

// ISceneStore は生成先シーンの永続化契約を表す。
type ISceneStore interface {
	LoadScene() (mhost.IScene, error)
	SaveScene(scene mhost.IScene) error
	Close() error
}
