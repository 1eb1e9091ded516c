package form

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type programFields struct {
	Name            string   `json:"name" validate:"required"`
	Duration        int      `json:"duration" validate:"gt=0"`
	Specializations []string `json:"specializations"`
}

func TestDraft_create(t *testing.T) {
	validate := validator.New()
	d, err := New(programFields{Duration: 4})
	require.NoError(t, err)
	assert.Equal(t, ModeCreate, d.Mode())
	assert.Equal(t, StateEditing, d.State())
	assert.False(t, d.Dirty())

	var stored []programFields
	store := func(f programFields) error {
		stored = append(stored, f)
		return nil
	}

	// invalid drafts are kept for correction
	err = d.Commit(validate, store)
	assert.Error(t, err)
	assert.Equal(t, StateEditing, d.State())
	assert.Empty(t, stored)

	require.NoError(t, d.Set(func(f *programFields) { f.Name = "BSc Computer Science" }))
	assert.True(t, d.Dirty())
	assert.True(t, d.Validate(validate))

	require.NoError(t, d.Commit(validate, store))
	assert.Equal(t, StateCommitted, d.State())
	assert.Equal(t, []programFields{{Name: "BSc Computer Science", Duration: 4}}, stored)

	assert.Equal(t, ErrClosed, d.Set(func(f *programFields) { f.Name = "lol" }))
	assert.Equal(t, ErrClosed, d.Commit(validate, store))
}

func TestDraft_editIsACopy(t *testing.T) {
	current := programFields{Name: "MBA", Duration: 2, Specializations: []string{"Finance"}}
	d, err := Edit(current)
	require.NoError(t, err)
	assert.Equal(t, ModeEdit, d.Mode())

	_ = d.Set(func(f *programFields) {
		f.Specializations[0] = "Marketing"
		f.Specializations = Toggle(f.Specializations, "HR", true)
	})
	assert.True(t, d.Dirty())
	assert.Equal(t, []string{"Finance"}, current.Specializations)
	assert.Equal(t, []string{"Marketing", "HR"}, d.Fields.Specializations)
}

func TestDraft_cancel(t *testing.T) {
	d, err := Edit(programFields{Name: "MBA", Duration: 2})
	require.NoError(t, err)
	_ = d.Set(func(f *programFields) { f.Name = "MSc" })
	d.Cancel()
	assert.Equal(t, StateCancelled, d.State())

	called := false
	err = d.Commit(nil, func(programFields) error { called = true; return nil })
	assert.Equal(t, ErrClosed, err)
	assert.False(t, called)
}

func TestDraft_storeFailureKeepsDraftOpen(t *testing.T) {
	d, err := New(programFields{Name: "MBA", Duration: 2})
	require.NoError(t, err)
	storeErr := errors.New("code exists")
	assert.Equal(t, storeErr, d.Commit(validator.New(), func(programFields) error { return storeErr }))
	assert.Equal(t, StateEditing, d.State())
	assert.Equal(t, storeErr, d.Err())
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name    string
		list    []string
		value   string
		checked bool
		want    []string
	}{
		{name: "check absent", list: []string{"a"}, value: "b", checked: true, want: []string{"a", "b"}},
		{name: "check present", list: []string{"a", "b"}, value: "b", checked: true, want: []string{"a", "b"}},
		{name: "uncheck present", list: []string{"a", "b", "c"}, value: "b", checked: false, want: []string{"a", "c"}},
		{name: "uncheck absent", list: []string{"a"}, value: "b", checked: false, want: []string{"a"}},
		{name: "check on nil", list: nil, value: "a", checked: true, want: []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := append([]string(nil), tt.list...)
			assert.Equal(t, tt.want, Toggle(tt.list, tt.value, tt.checked))
			assert.Equal(t, orig, tt.list)
		})
	}
}
