// Package fixtures builds entities filled with random data for tests.
//
//	users := fixtures.Many[User](3)
//	s.entities = fixtures.Entities(users)
//
// Exported fields are filled by kind, with field-name hints for common
// columns (Email, Name, City, ...). Primary keys, associations and fields
// tagged gorm:"-" are left zero, so the store assigns identities.
package fixtures

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Pallinder/go-randomdata"
)

var mutex sync.Mutex

// New returns a *T with random field values.
func New[T any]() *T {
	ptr := new(T)
	Fill(ptr)
	return ptr
}

// Many returns n random *T.
func Many[T any](n int) []*T {
	items := make([]*T, n)
	for i := range items {
		items[i] = New[T]()
	}
	return items
}

// Entities converts typed entities to the []any fixture hooks return.
func Entities[T any](items []*T) []any {
	entities := make([]any, len(items))
	for i, item := range items {
		entities[i] = item
	}
	return entities
}

// Fill sets random values on the fields of the struct ptr points to.
// Anything else is left untouched.
func Fill(ptr any) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()
	fillStruct(rv.Elem())
}

func fillStruct(elem reflect.Value) {
	typ := elem.Type()
	for i := 0; i < elem.NumField(); i++ {
		sf := typ.Field(i)
		fv := elem.Field(i)
		if skipField(sf) {
			continue
		}
		if sf.Anonymous && fv.Kind() == reflect.Struct {
			fillStruct(fv)
			continue
		}
		if !fv.CanSet() {
			continue
		}
		if v := newValue(sf.Name, fv.Type()); v.IsValid() {
			fv.Set(v)
		}
	}
}

func skipField(sf reflect.StructField) bool {
	if sf.Name == "ID" {
		return true
	}
	tag := strings.ToLower(sf.Tag.Get("gorm"))
	return tag == "-" || strings.Contains(tag, "primarykey") || strings.Contains(tag, "foreignkey")
}

var timeType = reflect.TypeOf(time.Time{})

func newValue(name string, typ reflect.Type) reflect.Value {
	if typ == timeType {
		days := randomdata.Number(1, 3650)
		return reflect.ValueOf(time.Now().UTC().Truncate(time.Second).AddDate(0, 0, -days))
	}

	var v reflect.Value
	switch typ.Kind() {
	case reflect.String:
		v = reflect.ValueOf(stringFor(name))
	case reflect.Bool:
		v = reflect.ValueOf(randomdata.Boolean())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v = reflect.ValueOf(int64(randomdata.Number(1, 100)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v = reflect.ValueOf(uint64(randomdata.Number(1, 100)))
	case reflect.Float32, reflect.Float64:
		v = reflect.ValueOf(randomdata.Decimal(1, 1000, 2))
	default:
		return reflect.Value{}
	}
	return v.Convert(typ)
}

func stringFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "email"):
		return randomdata.Email()
	case lower == "firstname":
		return randomdata.FirstName(randomdata.RandomGender)
	case lower == "lastname":
		return randomdata.LastName()
	case strings.Contains(lower, "name"):
		return randomdata.FullName(randomdata.RandomGender)
	case strings.Contains(lower, "city"):
		return randomdata.City()
	case strings.Contains(lower, "country"):
		return randomdata.Country(randomdata.FullCountry)
	case strings.Contains(lower, "address"):
		return randomdata.Address()
	case strings.Contains(lower, "phone"):
		return randomdata.PhoneNumber()
	case strings.Contains(lower, "title"):
		return randomdata.Title(randomdata.RandomGender)
	default:
		return randomdata.SillyName()
	}
}
