package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireTimeDecoding(t *testing.T) {
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		body string
		want *time.Time
	}{
		{
			name: "rfc3339 string",
			body: `{"id":"c","createTimeUtc":"2024-06-01T12:00:00Z"}`,
			want: &want,
		},
		{
			name: "epoch seconds",
			body: `{"id":"c","createTimeUtc":1717243200}`,
			want: &want,
		},
		{
			name: "epoch milliseconds divided down by magnitude",
			body: `{"id":"c","createTimeUtc":1717243200000}`,
			want: &want,
		},
		{
			name: "null stays absent",
			body: `{"id":"c","createTimeUtc":null}`,
			want: nil,
		},
		{
			name: "missing stays absent",
			body: `{"id":"c"}`,
			want: nil,
		},
		{
			name: "zero stays absent",
			body: `{"id":"c","createTimeUtc":0}`,
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := ParseConversationBody([]byte(tc.body))
			require.NoError(t, err)
			require.NotNil(t, record)
			if tc.want == nil {
				assert.Nil(t, record.CreateTime)
				return
			}
			require.NotNil(t, record.CreateTime)
			assert.True(t, record.CreateTime.Equal(*tc.want), "got %v, want %v", record.CreateTime, tc.want)
		})
	}
}

func TestParseConversationBodyNull(t *testing.T) {
	record, err := ParseConversationBody([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = ParseConversationBody([]byte(`{"title":"no id"}`))
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestParseListBodySkipsIDlessItems(t *testing.T) {
	page, err := ParseListBody([]byte(`{"items":[{"id":"a"},{"title":"b"}],"nextCursor":""}`))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].ID)
}
