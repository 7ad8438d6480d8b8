// 指示: miu200521358
// Package io_scene は生成先シーンのファイル永続化を提供する。
package io_scene

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/host/memory"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_common"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

const sceneSchema = `
CREATE TABLE IF NOT EXISTS armatures (
	ordinal INTEGER NOT NULL,
	name TEXT PRIMARY KEY,
	linked INTEGER NOT NULL,
	mode TEXT NOT NULL,
	props TEXT NOT NULL,
	custom_props TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bones (
	armature TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (armature, name)
);
CREATE TABLE IF NOT EXISTS bone_groups (
	armature TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	name TEXT NOT NULL,
	props TEXT NOT NULL,
	PRIMARY KEY (armature, name)
);
CREATE TABLE IF NOT EXISTS drivers (
	armature TEXT NOT NULL,
	key TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (armature, key)
);
CREATE TABLE IF NOT EXISTS widgets (
	ordinal INTEGER NOT NULL,
	name TEXT PRIMARY KEY,
	collection TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS texts (
	ordinal INTEGER NOT NULL,
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL
)`

var sceneTables = []string{"armatures", "bones", "bone_groups", "drivers", "widgets", "texts"}

// snapshotter はダンプ可能なシーンを表す。
type snapshotter interface {
	Snapshot() memory.SceneSnapshot
}

// SqliteStore はシーンを SQLite ファイルへ保存する。
type SqliteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSqliteStore はシーンファイルを開き、スキーマを用意する。
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, io_common.NewIoParseFailed("シーンファイルを開けません: %s", err, path)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, io_common.NewIoParseFailed("シーンファイルを開けません: %s", err, path)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, io_common.NewIoParseFailed("シーンファイルの設定に失敗しました: %s", err, path)
	}
	store := &SqliteStore{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SqliteStore) initSchema() error {
	for _, stmt := range strings.Split(sceneSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return io_common.NewIoParseFailed("シーンスキーマの作成に失敗しました: %s", err, s.path)
		}
	}
	return nil
}

// Path は保存先パスを返す。
func (s *SqliteStore) Path() string {
	return s.path
}

// LoadScene は保存済みシーンを復元する。未保存なら空シーンを返す。
func (s *SqliteStore) LoadScene() (mhost.IScene, error) {
	snap, err := s.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	scene, err := memory.RestoreScene(snap)
	if err != nil {
		return nil, io_common.NewIoParseFailed("シーンの復元に失敗しました: %s", err, s.path)
	}
	logSceneDebug("シーン読込: file=%s armatures=%d", s.path, len(snap.Armatures))
	return scene, nil
}

// LoadSnapshot は保存済みダンプを読み出す。
func (s *SqliteStore) LoadSnapshot() (memory.SceneSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memory.SceneSnapshot{}
	if err := s.loadArmatures(&snap); err != nil {
		return snap, err
	}
	byName := make(map[string]*memory.ArmatureSnapshot, len(snap.Armatures))
	for i := range snap.Armatures {
		byName[snap.Armatures[i].Name] = &snap.Armatures[i]
	}
	if err := s.loadBones(byName); err != nil {
		return snap, err
	}
	if err := s.loadGroups(byName); err != nil {
		return snap, err
	}
	if err := s.loadDrivers(byName); err != nil {
		return snap, err
	}
	if err := s.loadWidgets(&snap); err != nil {
		return snap, err
	}
	if err := s.loadTexts(&snap); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *SqliteStore) loadArmatures(snap *memory.SceneSnapshot) error {
	rows, err := s.db.Query("SELECT name, linked, mode, props, custom_props FROM armatures ORDER BY ordinal")
	if err != nil {
		return s.parseFailed("armatures", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			as          memory.ArmatureSnapshot
			linked      int
			props       string
			customProps string
		)
		if err := rows.Scan(&as.Name, &linked, &as.Mode, &props, &customProps); err != nil {
			return s.parseFailed("armatures", err)
		}
		as.Linked = linked != 0
		if err := decodeColumn(props, &as.Props); err != nil {
			return s.parseFailed("armatures", err)
		}
		if err := decodeColumn(customProps, &as.CustomProps); err != nil {
			return s.parseFailed("armatures", err)
		}
		snap.Armatures = append(snap.Armatures, as)
	}
	if err := rows.Err(); err != nil {
		return s.parseFailed("armatures", err)
	}
	return nil
}

func (s *SqliteStore) loadBones(byName map[string]*memory.ArmatureSnapshot) error {
	rows, err := s.db.Query("SELECT armature, body FROM bones ORDER BY armature, ordinal")
	if err != nil {
		return s.parseFailed("bones", err)
	}
	defer rows.Close()
	for rows.Next() {
		var armature, body string
		if err := rows.Scan(&armature, &body); err != nil {
			return s.parseFailed("bones", err)
		}
		as, ok := byName[armature]
		if !ok {
			continue
		}
		var bs memory.BoneSnapshot
		if err := decodeColumn(body, &bs); err != nil {
			return s.parseFailed("bones", err)
		}
		as.Bones = append(as.Bones, bs)
	}
	if err := rows.Err(); err != nil {
		return s.parseFailed("bones", err)
	}
	return nil
}

func (s *SqliteStore) loadGroups(byName map[string]*memory.ArmatureSnapshot) error {
	rows, err := s.db.Query("SELECT armature, name, props FROM bone_groups ORDER BY armature, ordinal")
	if err != nil {
		return s.parseFailed("bone_groups", err)
	}
	defer rows.Close()
	for rows.Next() {
		var armature, props string
		var gs memory.GroupSnapshot
		if err := rows.Scan(&armature, &gs.Name, &props); err != nil {
			return s.parseFailed("bone_groups", err)
		}
		as, ok := byName[armature]
		if !ok {
			continue
		}
		if err := decodeColumn(props, &gs.Props); err != nil {
			return s.parseFailed("bone_groups", err)
		}
		as.Groups = append(as.Groups, gs)
	}
	if err := rows.Err(); err != nil {
		return s.parseFailed("bone_groups", err)
	}
	return nil
}

func (s *SqliteStore) loadDrivers(byName map[string]*memory.ArmatureSnapshot) error {
	rows, err := s.db.Query("SELECT armature, body FROM drivers ORDER BY armature, key")
	if err != nil {
		return s.parseFailed("drivers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var armature, body string
		if err := rows.Scan(&armature, &body); err != nil {
			return s.parseFailed("drivers", err)
		}
		as, ok := byName[armature]
		if !ok {
			continue
		}
		var ds memory.DriverSnapshot
		if err := decodeColumn(body, &ds); err != nil {
			return s.parseFailed("drivers", err)
		}
		as.Drivers = append(as.Drivers, ds)
	}
	if err := rows.Err(); err != nil {
		return s.parseFailed("drivers", err)
	}
	return nil
}

func (s *SqliteStore) loadWidgets(snap *memory.SceneSnapshot) error {
	rows, err := s.db.Query("SELECT name, collection FROM widgets ORDER BY ordinal")
	if err != nil {
		return s.parseFailed("widgets", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ws memory.WidgetSnapshot
		if err := rows.Scan(&ws.Name, &ws.Collection); err != nil {
			return s.parseFailed("widgets", err)
		}
		snap.Widgets = append(snap.Widgets, ws)
	}
	if err := rows.Err(); err != nil {
		return s.parseFailed("widgets", err)
	}
	return nil
}

func (s *SqliteStore) loadTexts(snap *memory.SceneSnapshot) error {
	rows, err := s.db.Query("SELECT name, body FROM texts ORDER BY ordinal")
	if err != nil {
		return s.parseFailed("texts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts memory.TextSnapshot
		if err := rows.Scan(&ts.Name, &ts.Body); err != nil {
			return s.parseFailed("texts", err)
		}
		snap.Texts = append(snap.Texts, ts)
	}
	if err := rows.Err(); err != nil {
		return s.parseFailed("texts", err)
	}
	return nil
}

// SaveScene はシーン全体を置き換えて保存する。
func (s *SqliteStore) SaveScene(scene mhost.IScene) error {
	dumper, ok := scene.(snapshotter)
	if !ok || dumper == nil {
		return io_common.NewIoSaveFailed("保存できないシーンです: %T", nil, scene)
	}
	return s.SaveSnapshot(dumper.Snapshot())
}

// SaveSnapshot はダンプを1トランザクションで書き込む。
func (s *SqliteStore) SaveSnapshot(snap memory.SceneSnapshot) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return io_common.NewIoSaveFailed("シーン保存の開始に失敗しました: %s", err, s.path)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range sceneTables {
		if _, err = tx.Exec("DELETE FROM " + table); err != nil {
			return s.saveFailed(table, err)
		}
	}
	for i, as := range snap.Armatures {
		if err = insertArmature(tx, i, as); err != nil {
			return s.saveFailed("armatures", err)
		}
	}
	for i, ws := range snap.Widgets {
		if _, err = tx.Exec("INSERT INTO widgets (ordinal, name, collection) VALUES (?, ?, ?)", i, ws.Name, ws.Collection); err != nil {
			return s.saveFailed("widgets", err)
		}
	}
	for i, ts := range snap.Texts {
		if _, err = tx.Exec("INSERT INTO texts (ordinal, name, body) VALUES (?, ?, ?)", i, ts.Name, ts.Body); err != nil {
			return s.saveFailed("texts", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return io_common.NewIoSaveFailed("シーン保存の確定に失敗しました: %s", err, s.path)
	}
	logSceneDebug("シーン保存: file=%s armatures=%d", s.path, len(snap.Armatures))
	return nil
}

func insertArmature(tx *sql.Tx, ordinal int, as memory.ArmatureSnapshot) error {
	props, err := encodeColumn(as.Props)
	if err != nil {
		return err
	}
	customProps, err := encodeColumn(as.CustomProps)
	if err != nil {
		return err
	}
	linked := 0
	if as.Linked {
		linked = 1
	}
	if _, err := tx.Exec(
		"INSERT INTO armatures (ordinal, name, linked, mode, props, custom_props) VALUES (?, ?, ?, ?, ?, ?)",
		ordinal, as.Name, linked, as.Mode, props, customProps,
	); err != nil {
		return err
	}
	for i, bs := range as.Bones {
		body, err := encodeColumn(bs)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO bones (armature, ordinal, name, body) VALUES (?, ?, ?, ?)", as.Name, i, bs.Name, body); err != nil {
			return err
		}
	}
	for i, gs := range as.Groups {
		props, err := encodeColumn(gs.Props)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO bone_groups (armature, ordinal, name, props) VALUES (?, ?, ?, ?)", as.Name, i, gs.Name, props); err != nil {
			return err
		}
	}
	for _, ds := range as.Drivers {
		body, err := encodeColumn(ds)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO drivers (armature, key, body) VALUES (?, ?, ?)", as.Name, ds.Key, body); err != nil {
			return err
		}
	}
	return nil
}

// Close はシーンファイルを閉じる。
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) parseFailed(table string, err error) error {
	return io_common.NewIoParseFailed("シーンの読み込みに失敗しました: %s table=%s", err, s.path, table)
}

func (s *SqliteStore) saveFailed(table string, err error) error {
	return io_common.NewIoSaveFailed("シーンの保存に失敗しました: %s table=%s", err, s.path, table)
}

func encodeColumn(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("列のエンコードに失敗しました: %w", err)
	}
	return string(b), nil
}

func decodeColumn(body string, dst any) error {
	if body == "" || body == "null" {
		return nil
	}
	return json.Unmarshal([]byte(body), dst)
}

// DumpYAML はダンプを決定的な YAML で書き出す。
func DumpYAML(snap memory.SceneSnapshot, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(snap); err != nil {
		return io_common.NewIoSaveFailed("シーンダンプの生成に失敗しました", err)
	}
	return encoder.Close()
}

func logSceneDebug(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Debug(format, params...)
}
