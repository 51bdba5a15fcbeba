package todo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339 with zone",
			input: `"2024-03-01T10:20:30Z"`,
			want:  time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
		},
		{
			name:  "rfc3339 with offset",
			input: `"2024-03-01T12:20:30+02:00"`,
			want:  time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
		},
		{
			name:  "naive with microseconds",
			input: `"2024-03-01T10:20:30.123456"`,
			want:  time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC),
		},
		{
			name:  "naive without fraction",
			input: `"2024-03-01T10:20:30"`,
			want:  time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
		},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `17`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
		})
	}
}

func TestTodo_DecodesServerPayload(t *testing.T) {
	payload := `{"id":3,"title":"Buy milk","description":null,"completed":false,
		"created_at":"2024-03-01T10:20:30.5","updated_at":null,"user_id":1}`

	var td Todo
	require.NoError(t, json.Unmarshal([]byte(payload), &td))

	assert.Equal(t, 3, td.ID)
	assert.Nil(t, td.Description)
	assert.Nil(t, td.UpdatedAt)
	assert.Equal(t, 2024, td.CreatedAt.Year())
	assert.Empty(t, td.DescriptionText())
}
