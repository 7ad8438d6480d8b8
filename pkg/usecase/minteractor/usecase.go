// 指示: miu200521358
// Package minteractor はメタリグから制御リグを生成するユースケースを提供する。
package minteractor

import (
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/moutput"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/rigs"
)

// CloudGeneratorDeps はリグ生成ユースケースの依存を表す。
type CloudGeneratorDeps struct {
	MetarigReader moutput.IMetarigReader
	SceneStore    moutput.ISceneStore
	// Registry はリグ種別の登録表。nilなら標準の種別を使う。
	Registry *rigs.Registry
}

// CloudGenerator はメタリグからリグを生成する処理をまとめたユースケースを表す。
type CloudGenerator struct {
	metarigReader moutput.IMetarigReader
	sceneStore    moutput.ISceneStore
	registry      *rigs.Registry
}

// NewCloudGenerator はリグ生成ユースケースを生成する。
func NewCloudGenerator(deps CloudGeneratorDeps) *CloudGenerator {
	registry := deps.Registry
	if registry == nil {
		registry = rigs.DefaultRegistry()
	}
	return &CloudGenerator{
		metarigReader: deps.MetarigReader,
		sceneStore:    deps.SceneStore,
		registry:      registry,
	}
}

// Registry はリグ種別の登録表を返す。
func (uc *CloudGenerator) Registry() *rigs.Registry {
	return uc.registry
}

func logGeneratorInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}

func logGeneratorWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}

func logGeneratorVerbose(channel logging.VerboseChannel, format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Verbose(channel, format, params...)
}
