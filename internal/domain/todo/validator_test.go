package todo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCreate(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateRequest
		wantTitle string
		wantErr   error
	}{
		{name: "trims title", req: CreateRequest{Title: "  buy milk "}, wantTitle: "buy milk"},
		{name: "empty title", req: CreateRequest{Title: ""}, wantErr: ErrEmptyTitle},
		{name: "blank title", req: CreateRequest{Title: " \t "}, wantErr: ErrEmptyTitle},
		{name: "title too long", req: CreateRequest{Title: strings.Repeat("a", MaxTitleLen+1)}, wantErr: ErrValidation},
		{
			name:    "description too long",
			req:     CreateRequest{Title: "ok", Description: String(strings.Repeat("d", MaxDescriptionLen+1))},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCreate(tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestNormalizeUpdate(t *testing.T) {
	_, err := NormalizeUpdate(UpdateRequest{})
	assert.ErrorIs(t, err, ErrNoChanges)

	_, err = NormalizeUpdate(UpdateRequest{Title: String("  ")})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	got, err := NormalizeUpdate(UpdateRequest{Completed: Bool(true)})
	require.NoError(t, err)
	assert.Nil(t, got.Title)
	assert.True(t, *got.Completed)

	got, err = NormalizeUpdate(UpdateRequest{Title: String(" new ")})
	require.NoError(t, err)
	assert.Equal(t, "new", *got.Title)
}

func TestValidationError_Message(t *testing.T) {
	_, err := NormalizeCreate(CreateRequest{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, "title: title cannot be empty", err.Error())
}

func TestListResult_Paging(t *testing.T) {
	r := &ListResult{Total: 11, Skip: 10, Limit: 10}
	assert.False(t, r.HasNext())
	assert.True(t, r.HasPrev())

	current, pages := r.Page()
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, pages)

	empty := &ListResult{}
	current, pages = empty.Page()
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, pages)
}
