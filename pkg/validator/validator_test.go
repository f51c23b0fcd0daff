package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createArtifact struct {
	ProjectID int64  `json:"projectId" validate:"gt=0"`
	Type      string `json:"type" validate:"notblank,trimmed"`
	Title     string `json:"title" validate:"notblank,trimmed"`
	Status    string `json:"status" validate:"omitempty,oneof=DRAFT APPROVED DEPRECATED"`
}

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		in        createArtifact
		wantField string
		wantTag   string
	}{
		{"valid", createArtifact{ProjectID: 1, Type: "guide", Title: "Intro"}, "", ""},
		{"missing project", createArtifact{Type: "guide", Title: "Intro"}, "projectId", "gt"},
		{"blank title", createArtifact{ProjectID: 1, Type: "guide", Title: "   "}, "title", TagNotBlank},
		{"untrimmed title", createArtifact{ProjectID: 1, Type: "guide", Title: " Intro"}, "title", TagTrimmed},
		{"unknown status", createArtifact{ProjectID: 1, Type: "guide", Title: "Intro", Status: "ARCHIVED"}, "status", "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Struct(tt.in, LangEN)
			if tt.wantField == "" {
				assert.Nil(t, errs)
				assert.False(t, errs.HasErrors())
				return
			}
			require.True(t, errs.HasErrors())
			require.Len(t, errs.Errors, 1)
			assert.Equal(t, tt.wantField, errs.Errors[0].Field)
			assert.Equal(t, tt.wantTag, errs.Errors[0].Tag)
			assert.True(t, errs.Failed(tt.wantField))
			assert.NotEmpty(t, errs.First())
		})
	}
}

func TestCustomTranslations(t *testing.T) {
	v := New()
	in := createArtifact{ProjectID: 1, Type: "guide", Title: " "}

	en := v.Struct(in, LangEN)
	require.NotNil(t, en)
	assert.Equal(t, "title must not be blank", en.First())
	assert.Equal(t, "validation failed: title must not be blank", en.Error())

	zh := v.Struct(in, LangZH)
	require.NotNil(t, zh)
	assert.Equal(t, "title不能为空白", zh.First())

	fallback := v.Struct(in, "fr")
	require.NotNil(t, fallback)
	assert.Equal(t, en.First(), fallback.First())
}

func TestValidationErrorsNil(t *testing.T) {
	var errs *ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Empty(t, errs.First())
	assert.Empty(t, errs.Error())
	assert.False(t, errs.Failed("title"))
}
