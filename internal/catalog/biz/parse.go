package biz

import (
	"math"
	"strconv"
	"strings"

	"github.com/kart-io/catalog-console/pkg/errors"
)

// ParseProjectID 解析用户输入的项目 ID。
func ParseProjectID(v string) (int64, error) {
	id, ok := parseID(v)
	if !ok {
		return 0, errors.ErrInvalidProjectID
	}
	return id, nil
}

// ParseArtifactID 解析用户输入的制品 ID。
func ParseArtifactID(v string) (int64, error) {
	id, ok := parseID(v)
	if !ok {
		return 0, errors.ErrInvalidArtifactID
	}
	return id, nil
}

func parseID(v string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parsePositive 解析正数输入。空串、非数字、NaN、Inf 和非正数均视为未设置。
func parsePositive(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// positiveInt 将正数输入转换为整数指针，无效输入返回 nil。
func positiveInt(v string) *int {
	f, ok := parsePositive(v)
	if !ok {
		return nil
	}
	n := int(math.Min(math.Max(1, math.Floor(f)), math.MaxInt32))
	return &n
}
