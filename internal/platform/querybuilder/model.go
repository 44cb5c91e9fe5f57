package querybuilder

import (
	"errors"
	"reflect"
	"strings"
)

// InsertModel starts an insert from the exported `db`-tagged fields of a struct.
func InsertModel(table string, model any) (*InsertBuilder, error) {
	cols, vals, err := modelColumns(model)
	if err != nil {
		return nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...), nil
}

// Columns lists the db column names of a model type, in field order.
func Columns(model any) []string {
	cols, _, _ := modelColumns(model)
	return cols
}

func modelColumns(model any) ([]string, []any, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil, errors.New("model cannot be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, nil, errors.New("model must be a struct")
	}

	t := v.Type()
	var (
		cols []string
		vals []any
	)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}
		cols = append(cols, name)
		vals = append(vals, v.Field(i).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, errors.New("model has no db columns")
	}
	return cols, vals, nil
}
