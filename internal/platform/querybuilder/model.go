package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// InsertModel renders an INSERT for one struct whose exported fields carry
// db tags.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := modelRow(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// InsertModels renders one multi-row INSERT for models of the same struct type.
func InsertModels[T any](table string, models []T, suffix string) (string, []any, error) {
	if len(models) == 0 {
		return "", nil, fmt.Errorf("insert models are required")
	}

	builder := InsertInto(table).Suffix(suffix)
	for i, model := range models {
		cols, vals, err := modelRow(model)
		if err != nil {
			return "", nil, fmt.Errorf("model %d: %w", i, err)
		}
		if i == 0 {
			builder.Columns(cols...)
		}
		builder.Values(vals...)
	}
	return builder.ToSQL()
}

type modelColumn struct {
	name  string
	index int
}

// modelPlans caches the tagged columns per struct type.
var modelPlans sync.Map

func modelRow(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	plan := planFor(value.Type())
	if len(plan) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", value.Type())
	}

	cols := make([]string, len(plan))
	vals := make([]any, len(plan))
	for i, col := range plan {
		cols[i] = col.name
		vals[i] = value.Field(col.index).Interface()
	}
	return cols, vals, nil
}

func planFor(typ reflect.Type) []modelColumn {
	if cached, ok := modelPlans.Load(typ); ok {
		return cached.([]modelColumn)
	}

	plan := make([]modelColumn, 0, typ.NumField())
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}
		plan = append(plan, modelColumn{name: name, index: i})
	}
	modelPlans.Store(typ, plan)
	return plan
}
