package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-console/pkg/utils/json"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		raw  string
	}{
		{in: "2024-05-01T10:00:00Z", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "2024-05-01T10:00:00.123456", want: time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)},
		{in: "2024-05-01 10:00:00", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "2024-05-01", want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{in: "1714557600000", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "yesterday", raw: "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts := ParseTimestamp(tt.in)
			assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
			assert.Equal(t, tt.raw, ts.Raw)
		})
	}
}

func TestArtifactDecodesLenientTimestamp(t *testing.T) {
	var a Artifact
	err := json.Unmarshal([]byte(`{"id":1,"status":"DRAFT","updatedAt":"2024-05-01T10:00:00.123456"}`), &a)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", a.UpdatedAt.String())

	err = json.Unmarshal([]byte(`{"id":1,"updatedAt":"last tuesday"}`), &a)
	require.NoError(t, err)
	assert.Equal(t, "last tuesday", a.UpdatedAt.String())

	a = Artifact{}
	err = json.Unmarshal([]byte(`{"id":1,"updatedAt":null}`), &a)
	require.NoError(t, err)
	assert.True(t, a.UpdatedAt.IsZero())
}

func TestTimestampMarshal(t *testing.T) {
	b, err := json.Marshal(NewTimestamp(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-01-02T03:04:05Z"`, string(b))

	b, err = json.Marshal(Timestamp{Raw: "soon"})
	require.NoError(t, err)
	assert.JSONEq(t, `"soon"`, string(b))

	b, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
