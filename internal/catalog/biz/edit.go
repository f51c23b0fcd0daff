package biz

import (
	"strings"

	"github.com/kart-io/catalog-console/internal/model"
)

// EditFields 用户在编辑表单中填写的字段。
type EditFields struct {
	Type    string
	Title   string
	Content string
}

// FieldsOf 返回制品当前值，用作编辑表单的初始值。
func FieldsOf(a *model.Artifact) EditFields {
	if a == nil {
		return EditFields{}
	}
	return EditFields{Type: a.Type, Title: a.Title, Content: a.Content}
}

// Diff 计算最小更新载荷：各字段去除首尾空白后与已加载值比较，只包含发生变化的字段。
// 与已加载值完全相同的字段视为未修改，不会因去除空白而被改写。
func Diff(loaded *model.Artifact, edits EditFields) model.UpdateArtifactRequest {
	var req model.UpdateArtifactRequest
	if loaded == nil {
		return req
	}
	req.Type = changed(loaded.Type, edits.Type)
	req.Title = changed(loaded.Title, edits.Title)
	req.Content = changed(loaded.Content, edits.Content)
	return req
}

func changed(loaded, edited string) *string {
	if edited == loaded {
		return nil
	}
	v := strings.TrimSpace(edited)
	if v == loaded {
		return nil
	}
	return &v
}
