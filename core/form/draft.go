// Package form holds staged, uncommitted edits of an entity's editable fields.
package form

import (
	"encoding/json"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type (
	Mode  string
	State string
)

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"

	StateEditing   State = "editing"
	StateCommitted State = "committed"
	StateCancelled State = "cancelled"
)

var (
	ErrClosed  = errors.New("draft is no longer editable")
	ErrInvalid = errors.New("draft is invalid")
)

// Draft is a finite-state form: it is edited until it is either committed to a store or cancelled.
type Draft[T any] struct {
	Fields T

	mode  Mode
	state State
	orig  T
	err   error
}

// New opens a creation draft seeded with defaults.
func New[T any](defaults T) (*Draft[T], error) {
	return open(ModeCreate, defaults)
}

// Edit opens an edition draft seeded with a deep copy of current.
func Edit[T any](current T) (*Draft[T], error) {
	return open(ModeEdit, current)
}

func open[T any](mode Mode, seed T) (*Draft[T], error) {
	d := &Draft[T]{mode: mode, state: StateEditing}
	if err := deepCopy(&d.orig, seed); err != nil {
		return nil, errors.Wrap(err, "copying draft fields")
	}
	if err := deepCopy(&d.Fields, seed); err != nil {
		return nil, errors.Wrap(err, "copying draft fields")
	}
	return d, nil
}

func deepCopy[T any](dst *T, src T) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (d *Draft[T]) Mode() Mode   { return d.mode }
func (d *Draft[T]) State() State { return d.state }

// Set applies fn to the draft fields.
func (d *Draft[T]) Set(fn func(*T)) error {
	if d.state != StateEditing {
		return ErrClosed
	}
	fn(&d.Fields)
	d.err = nil
	return nil
}

// Dirty reports whether the fields differ from the ones the draft was opened with.
func (d *Draft[T]) Dirty() bool {
	return !reflect.DeepEqual(d.orig, d.Fields)
}

// Validate checks the fields with validate and keeps the outcome in Err.
func (d *Draft[T]) Validate(validate *validator.Validate) bool {
	d.err = validate.Struct(d.Fields)
	return d.err == nil
}

// Err returns the error of the last validation or commit.
func (d *Draft[T]) Err() error { return d.err }

// Commit validates the draft and hands its fields to store. The draft is closed once store succeeds;
// on failure it stays editable so the fields can be corrected.
func (d *Draft[T]) Commit(validate *validator.Validate, store func(T) error) error {
	if d.state != StateEditing {
		return ErrClosed
	}
	if validate != nil && !d.Validate(validate) {
		return d.err
	}
	if err := store(d.Fields); err != nil {
		d.err = err
		return err
	}
	d.state = StateCommitted
	return nil
}

// Cancel discards the draft.
func (d *Draft[T]) Cancel() {
	if d.state == StateEditing {
		d.state = StateCancelled
	}
}

// Toggle adds value to list when checked and absent, removes it when unchecked and present,
// and returns list unchanged otherwise.
func Toggle(list []string, value string, checked bool) []string {
	idx := -1
	for i, v := range list {
		if v == value {
			idx = i
			break
		}
	}
	switch {
	case checked && idx < 0:
		out := make([]string, len(list), len(list)+1)
		copy(out, list)
		return append(out, value)
	case !checked && idx >= 0:
		out := make([]string, 0, len(list)-1)
		out = append(out, list[:idx]...)
		return append(out, list[idx+1:]...)
	}
	return list
}
