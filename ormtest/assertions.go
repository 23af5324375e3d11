package ormtest

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/kbukum/ormtest/errors"
)

type tHelper interface {
	Helper()
}

// EnsureEntityManaged merges entity into em and returns the managed
// instance. An entity the store has never seen yields an error with code
// ENTITY_NOT_MANAGED. A copy scheduled by the merge itself is detached
// again; an entity the caller persisted stays scheduled.
func EnsureEntityManaged(ctx context.Context, em EntityManager, entity any) (any, error) {
	merged, err := em.Merge(ctx, entity)
	if err != nil {
		return nil, err
	}
	if em.IsScheduledForInsert(merged) {
		if merged != entity {
			em.Detach(merged)
		}
		return nil, apperrors.EntityNotManaged(Describe(entity))
	}
	return merged, nil
}

// IsEntityNotManaged reports whether err came from EnsureEntityManaged
// rejecting an unknown entity.
func IsEntityNotManaged(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeEntityNotManaged)
}

// merger merges entities into a session and detaches, on release, the
// copies the merges scheduled for insertion.
type merger struct {
	ctx     context.Context
	em      EntityManager
	created []any
}

func (m *merger) merge(entity any) (any, error) {
	merged, err := m.em.Merge(m.ctx, entity)
	if err != nil {
		return nil, err
	}
	if merged != entity && m.em.IsScheduledForInsert(merged) {
		m.created = append(m.created, merged)
	}
	return merged, nil
}

func (m *merger) release() {
	for _, entity := range m.created {
		m.em.Detach(entity)
	}
}

// AssertSameEntities asserts that expected and actual merge to the same
// managed instance, i.e. denote the same row.
//
// Merging a detached entity copies its state onto the managed instance, so
// a detached argument that differs from the stored row changes the managed
// entity, and the next Flush writes that change.
func AssertSameEntities(t assert.TestingT, ctx context.Context, em EntityManager, expected, actual any, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	m := &merger{ctx: ctx, em: em}
	defer m.release()

	e, err := m.merge(expected)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("Cannot merge expected entity %s: %v", Describe(expected), err), msgAndArgs...)
	}
	a, err := m.merge(actual)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("Cannot merge actual entity %s: %v", Describe(actual), err), msgAndArgs...)
	}

	if e != a {
		return assert.Fail(t, fmt.Sprintf("Entities not the same (%s) (%s)", Describe(e), Describe(a)), msgAndArgs...)
	}
	return true
}

// AssertEntityCollectionEquals merges both collections into em element by
// element, keeping order, and asserts the entity states are equal position
// by position. States are captured before any merge: merging copies
// detached state onto shared managed instances, which would otherwise hide
// a content difference between two copies of one row.
//
// States are compared after normalising time.Time fields to UTC without a
// monotonic reading, so one instant loaded through different sessions or
// drivers compares equal. Merging has the side effect described on
// AssertSameEntities.
//
// expected and actual are slices or arrays of struct pointers or structs.
func AssertEntityCollectionEquals(t assert.TestingT, ctx context.Context, em EntityManager, expected, actual any, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	expectedEntities, err := entitiesOf(expected)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("Invalid expected collection: %v", err), msgAndArgs...)
	}
	actualEntities, err := entitiesOf(actual)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("Invalid actual collection: %v", err), msgAndArgs...)
	}
	expectedStates := statesOf(expectedEntities)
	actualStates := statesOf(actualEntities)

	m := &merger{ctx: ctx, em: em}
	defer m.release()

	for _, side := range []struct {
		name     string
		entities []any
	}{{"expected", expectedEntities}, {"actual", actualEntities}} {
		for i, entity := range side.entities {
			if _, err := m.merge(entity); err != nil {
				return assert.Fail(t, fmt.Sprintf("Cannot merge %s element %d %s: %v", side.name, i, Describe(entity), err), msgAndArgs...)
			}
		}
	}

	return assert.Equal(t, expectedStates, actualStates, msgAndArgs...)
}

// statesOf copies the struct value behind each entity pointer, with time
// values normalised.
func statesOf(entities []any) []any {
	states := make([]any, len(entities))
	for i, entity := range entities {
		state := reflect.New(reflect.TypeOf(entity).Elem()).Elem()
		state.Set(reflect.ValueOf(entity).Elem())
		normalizeTimes(state, 0)
		states[i] = state.Interface()
	}
	return states
}

var timeType = reflect.TypeOf(time.Time{})

// maxNormalizeDepth bounds the walk through embedded and nested structs.
const maxNormalizeDepth = 8

// normalizeTimes rewrites the settable time.Time and *time.Time fields of
// the struct v, recursing into nested structs. Pointers other than *time.Time
// are left alone: they may be shared with the entity being compared.
func normalizeTimes(v reflect.Value, depth int) {
	if depth > maxNormalizeDepth {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		switch {
		case field.Type() == timeType:
			field.Set(reflect.ValueOf(normalizeTime(field.Interface().(time.Time))))
		case field.Kind() == reflect.Ptr && field.Type().Elem() == timeType && !field.IsNil():
			t := normalizeTime(field.Elem().Interface().(time.Time))
			field.Set(reflect.ValueOf(&t))
		case field.Kind() == reflect.Struct:
			normalizeTimes(field, depth+1)
		}
	}
}

func normalizeTime(t time.Time) time.Time {
	return t.Round(0).UTC()
}

// entitiesOf returns the elements of a slice or array as entity pointers.
func entitiesOf(collection any) ([]any, error) {
	rv := reflect.ValueOf(collection)
	switch rv.Kind() {
	case reflect.Slice:
	case reflect.Array:
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		rv = cp
	default:
		return nil, apperrors.InvalidInput("collection", fmt.Sprintf("%T is not a slice or array", collection))
	}

	entities := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		for elem.Kind() == reflect.Interface && !elem.IsNil() {
			elem = elem.Elem()
		}
		switch {
		case elem.Kind() == reflect.Ptr && elem.IsNil():
			return nil, apperrors.InvalidEntity(fmt.Sprintf("element %d of %T is nil", i, collection))
		case elem.Kind() == reflect.Ptr:
			entities = append(entities, elem.Interface())
		case elem.Kind() == reflect.Struct && elem.CanAddr():
			entities = append(entities, elem.Addr().Interface())
		case elem.Kind() == reflect.Struct:
			ptr := reflect.New(elem.Type())
			ptr.Elem().Set(elem)
			entities = append(entities, ptr.Interface())
		default:
			return nil, apperrors.InvalidEntity(fmt.Sprintf("element %d of %T is a %s", i, collection, elem.Kind()))
		}
	}
	return entities, nil
}
