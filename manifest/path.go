package manifest

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/vcrobe/tplc/directive"
)

// Resolve evaluates a dotted path such as "user.address.city" or "items.0.name"
// against scope. Map keys match exactly, struct fields match case-insensitively
// and numeric segments index slices and arrays.
//
// The first segment may name the expression context instead: "$index",
// "$length", the position flags "$even", "$odd", "$first", "$last" and
// "$middle", or "$parent" followed by a path into the parent scope.
func Resolve(scope any, ctx *directive.ExpressionContext, path string) (any, error) {
	if path == "" || path == "." {
		return scope, nil
	}
	segments := strings.Split(path, ".")

	switch segments[0] {
	case "$index", "$length", "$even", "$odd", "$first", "$last", "$middle":
		if ctx == nil {
			return nil, fmt.Errorf("%s used outside of a repeated context", segments[0])
		}
		if len(segments) > 1 {
			return nil, fmt.Errorf("%s has no fields", segments[0])
		}
		return position(ctx, segments[0]), nil
	case "$parent":
		if ctx == nil {
			return nil, fmt.Errorf("$parent used outside of a repeated context")
		}
		scope, segments = ctx.Parent, segments[1:]
	}

	v := reflect.ValueOf(scope)
	for i, seg := range segments {
		next, err := field(v, seg)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve %q at %q: %w", path, strings.Join(segments[:i+1], "."), err)
		}
		v = next
	}

	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func position(ctx *directive.ExpressionContext, name string) any {
	switch name {
	case "$index":
		return ctx.Index
	case "$length":
		return ctx.Length
	case "$even":
		return ctx.IsEven()
	case "$odd":
		return ctx.IsOdd()
	case "$first":
		return ctx.IsFirst()
	case "$last":
		return ctx.IsLast()
	}
	return ctx.IsInMiddle()
}

func field(v reflect.Value, name string) (reflect.Value, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil value")
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("nil value")
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("map keys are not strings")
		}
		e := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !e.IsValid() {
			return reflect.Value{}, fmt.Errorf("no key %q", name)
		}
		return e, nil

	case reflect.Struct:
		f, ok := v.Type().FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
		if !ok || !f.IsExported() {
			return reflect.Value{}, fmt.Errorf("no exported field %q on %s", name, v.Type())
		}
		return v.FieldByIndex(f.Index), nil

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, fmt.Errorf("invalid index %q for length %d", name, v.Len())
		}
		return v.Index(i), nil
	}

	return reflect.Value{}, fmt.Errorf("%s has no field %q", v.Type(), name)
}
