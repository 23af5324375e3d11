package session

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	apperrors "github.com/kbukum/ormtest/errors"
)

// identity is the identity map key of an entity.
type identity struct {
	table string
	key   string
}

func (id identity) String() string {
	return id.table + "#" + id.key
}

// checkEntity requires a non-nil pointer to a struct.
func checkEntity(entity any) (reflect.Value, error) {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, apperrors.InvalidEntity(fmt.Sprintf("%T is not a non-nil pointer", entity))
	}
	if rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, apperrors.InvalidEntity(fmt.Sprintf("%T does not point to a struct", entity))
	}
	return rv, nil
}

// parseSchema returns the GORM schema of entity's type.
func parseSchema(db *gorm.DB, entity any) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(entity); err != nil {
		return nil, apperrors.InvalidEntity(fmt.Sprintf("cannot parse %T", entity)).WithCause(err)
	}
	if len(stmt.Schema.PrimaryFields) == 0 {
		return nil, apperrors.InvalidEntity(fmt.Sprintf("%T has no primary key", entity))
	}
	return stmt.Schema, nil
}

// identityOf returns the identity of entity. ok is false while any primary
// key field holds its zero value.
func identityOf(ctx context.Context, sch *schema.Schema, rv reflect.Value) (id identity, ok bool) {
	parts := make([]string, 0, len(sch.PrimaryFields))
	for _, field := range sch.PrimaryFields {
		value, zero := field.ValueOf(ctx, rv)
		if zero {
			return identity{}, false
		}
		parts = append(parts, fmt.Sprint(value))
	}
	return identity{table: sch.Table, key: strings.Join(parts, ",")}, true
}

// shallowCopy returns a new pointer holding a copy of *rv.
func shallowCopy(rv reflect.Value) reflect.Value {
	cp := reflect.New(rv.Elem().Type())
	cp.Elem().Set(rv.Elem())
	return cp
}

// copyState overwrites *dst with *src. Both must point to the same type.
func copyState(dst, src reflect.Value) {
	dst.Elem().Set(src.Elem())
}
