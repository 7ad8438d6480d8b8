// 指示: miu200521358
// Package io_metarig はYAML形式のメタリグ入出力を提供する。
package io_metarig

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_common"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
)

const (
	// FORMAT_VERSION は書き出し時のフォーマットバージョン。
	FORMAT_VERSION = "1.0.0"
	// SUPPORTED_FORMAT は読み込み可能なフォーマットバージョンの範囲。
	SUPPORTED_FORMAT = ">= 1.0.0, < 2.0.0"
)

// metarigDocument はメタリグYAMLの文書構造。
type metarigDocument struct {
	FormatVersion string                     `yaml:"format_version"`
	Name          string                     `yaml:"name,omitempty"`
	GeneratedRig  string                     `yaml:"generated_rig,omitempty"`
	Options       metarig.GenerationOptions `yaml:"options"`
	Bones         []metaBoneDocument         `yaml:"bones"`
}

// metaBoneDocument はメタリグボーンのYAML構造。
type metaBoneDocument struct {
	Name          string         `yaml:"name"`
	Parent        string         `yaml:"parent,omitempty"`
	Head          []float64      `yaml:"head,flow"`
	Tail          []float64      `yaml:"tail,flow"`
	Roll          float64        `yaml:"roll,omitempty"`
	BBoneSegments int            `yaml:"bbone_segments,omitempty"`
	UseConnect    bool           `yaml:"use_connect,omitempty"`
	UseDeform     *bool          `yaml:"use_deform,omitempty"`
	RigType       string         `yaml:"rig_type,omitempty"`
	Params        map[string]any `yaml:"params,omitempty"`
}

// MetarigRepository はメタリグYAMLの読み書きを表す。
type MetarigRepository struct {
	constraint *semver.Constraints
}

// NewMetarigRepository はMetarigRepositoryを生成する。
func NewMetarigRepository() *MetarigRepository {
	constraint, err := semver.NewConstraint(SUPPORTED_FORMAT)
	if err != nil {
		panic(err)
	}
	return &MetarigRepository{constraint: constraint}
}

// CanLoad は拡張子に応じて読み込み可否を判定する。
func (r *MetarigRepository) CanLoad(path string) bool {
	ext := filepath.Ext(path)
	return strings.EqualFold(ext, ".yaml") || strings.EqualFold(ext, ".yml")
}

// InferName はパスからメタリグ名を推定する。
func (r *MetarigRepository) InferName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// Load はメタリグを読み込む。
func (r *MetarigRepository) Load(path string) (*metarig.Metarig, error) {
	if !r.CanLoad(path) {
		return nil, io_common.NewIoExtInvalid(path, nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, io_common.NewIoFileNotFound(path, err)
		}
		return nil, io_common.NewIoParseFailed("メタリグの読み取りに失敗しました: %s", err, path)
	}
	meta, err := r.Decode(b)
	if err != nil {
		return nil, err
	}
	meta.Path = path
	if meta.Name == "" {
		meta.Name = r.InferName(path)
	}
	logMetarigInfo("メタリグ読込完了: file=%s bones=%d", filepath.Base(path), len(meta.Bones))
	return meta, nil
}

// Decode はYAMLバイト列からメタリグを復元する。
func (r *MetarigRepository) Decode(b []byte) (*metarig.Metarig, error) {
	doc := metarigDocument{Options: metarig.DefaultGenerationOptions()}
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, io_common.NewIoParseFailed("メタリグYAMLの解析に失敗しました", err)
	}
	if err := r.checkVersion(doc.FormatVersion); err != nil {
		return nil, err
	}

	meta := &metarig.Metarig{
		Name:          doc.Name,
		FormatVersion: doc.FormatVersion,
		Options:       doc.Options,
		GeneratedRig:  doc.GeneratedRig,
		Bones:         make([]*metarig.MetaBone, 0, len(doc.Bones)),
	}
	for i, bd := range doc.Bones {
		head, err := parseVec(bd.Head, "head", bd.Name)
		if err != nil {
			return nil, err
		}
		tail, err := parseVec(bd.Tail, "tail", bd.Name)
		if err != nil {
			return nil, err
		}
		if bd.Name == "" {
			return nil, io_common.NewIoParseFailed("ボーン名が空です: index=%d", nil, i)
		}
		useDeform := true
		if bd.UseDeform != nil {
			useDeform = *bd.UseDeform
		}
		meta.Bones = append(meta.Bones, &metarig.MetaBone{
			Name:          bd.Name,
			Parent:        bd.Parent,
			Head:          head,
			Tail:          tail,
			Roll:          bd.Roll,
			BBoneSegments: bd.BBoneSegments,
			UseConnect:    bd.UseConnect,
			UseDeform:     useDeform,
			RigType:       bd.RigType,
			Params:        metarig.Params(bd.Params),
		})
	}
	return meta, nil
}

// checkVersion はフォーマットバージョンが対応範囲か検証する。
func (r *MetarigRepository) checkVersion(version string) error {
	if version == "" {
		return io_common.NewIoFormatNotSupported("format_version がありません", nil)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return io_common.NewIoFormatNotSupported("format_version が不正です: %s", err, version)
	}
	if !r.constraint.Check(v) {
		return io_common.NewIoFormatNotSupported("未対応の format_version です: %s (%s)", nil, version, SUPPORTED_FORMAT)
	}
	return nil
}

// Save はメタリグをYAMLで書き出す。生成先リグ名の記録に使う。
func (r *MetarigRepository) Save(path string, meta *metarig.Metarig) error {
	b, err := r.Encode(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return io_common.NewIoSaveFailed("メタリグの書き出しに失敗しました: %s", err, path)
	}
	return nil
}

// Encode はメタリグをYAMLバイト列にする。
func (r *MetarigRepository) Encode(meta *metarig.Metarig) ([]byte, error) {
	if meta == nil {
		return nil, io_common.NewIoSaveFailed("メタリグが未設定です", nil)
	}
	doc := metarigDocument{
		FormatVersion: FORMAT_VERSION,
		Name:          meta.Name,
		GeneratedRig:  meta.GeneratedRig,
		Options:       meta.Options,
		Bones:         make([]metaBoneDocument, 0, len(meta.Bones)),
	}
	for _, b := range meta.Bones {
		bd := metaBoneDocument{
			Name:          b.Name,
			Parent:        b.Parent,
			Head:          []float64{b.Head.X, b.Head.Y, b.Head.Z},
			Tail:          []float64{b.Tail.X, b.Tail.Y, b.Tail.Z},
			Roll:          b.Roll,
			BBoneSegments: b.BBoneSegments,
			UseConnect:    b.UseConnect,
			RigType:       b.RigType,
			Params:        b.Params,
		}
		if !b.UseDeform {
			deform := false
			bd.UseDeform = &deform
		}
		doc.Bones = append(doc.Bones, bd)
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return nil, io_common.NewIoSaveFailed("メタリグYAMLの生成に失敗しました", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, io_common.NewIoSaveFailed("メタリグYAMLの生成に失敗しました", err)
	}
	return buf.Bytes(), nil
}

func parseVec(values []float64, label string, boneName string) (r3.Vec, error) {
	if len(values) != 3 {
		return r3.Vec{}, io_common.NewIoParseFailed("%s の %s は3要素が必要です: %d", nil, boneName, label, len(values))
	}
	return r3.Vec{X: values[0], Y: values[1], Z: values[2]}, nil
}

func logMetarigInfo(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Info(format, params...)
}
