// 指示: miu200521358
package mhost

import (
	"fmt"
	"strconv"
	"strings"
)

// joinPath はデータパスを連結する。添字指定はドットを付けない。
func joinPath(base string, prop string) string {
	if strings.HasPrefix(prop, "[") {
		return base + prop
	}
	return base + "." + prop
}

// PoseBonePath はポーズボーンのプロパティパスを返す。
func PoseBonePath(bone string, prop string) string {
	return joinPath(fmt.Sprintf("pose.bones[%s]", strconv.Quote(bone)), prop)
}

// DataBonePath はボーンデータのプロパティパスを返す。
func DataBonePath(bone string, prop string) string {
	return joinPath(fmt.Sprintf("bones[%s]", strconv.Quote(bone)), prop)
}

// ConstraintPath は制約のプロパティパスを返す。
func ConstraintPath(bone string, constraint string, prop string) string {
	return joinPath(fmt.Sprintf("pose.bones[%s].constraints[%s]", strconv.Quote(bone), strconv.Quote(constraint)), prop)
}

// CustomPropPath はカスタムプロパティ参照用の添字を返す。
func CustomPropPath(prop string) string {
	return fmt.Sprintf("[%s]", strconv.Quote(prop))
}
