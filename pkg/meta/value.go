package meta

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"
)

// PropertyValue resolves a possibly nested property path like `a.b.c`
// against an entity. Entities may be structs, pointers to structs, or
// maps keyed by string. Returns nil if any step of the path is missing.
func PropertyValue(entity interface{}, path string) interface{} {
	value := entity
	for _, name := range strings.Split(path, ".") {
		if value == nil {
			return nil
		}

		value = fieldValue(value, name)
	}

	return value
}

func fieldValue(value interface{}, name string) interface{} {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		fv := rv.FieldByNameFunc(func(field string) bool {
			return strings.EqualFold(field, name)
		})
		if !fv.IsValid() || !fv.CanInterface() {
			return nil
		}

		return fv.Interface()
	case reflect.Map:
		for _, key := range rv.MapKeys() {
			if key.Kind() == reflect.String &&
				strings.EqualFold(key.String(), name) {
				mv := rv.MapIndex(key)
				if !mv.IsValid() {
					return nil
				}

				return mv.Interface()
			}
		}

		return nil
	}

	return nil
}

// RatValue converts a numeric value of any width to an exact rational,
// returns false for non-numeric values.
func RatValue(value interface{}) (*big.Rat, bool) {
	switch v := value.(type) {
	case int:
		return new(big.Rat).SetInt64(int64(v)), true
	case int8:
		return new(big.Rat).SetInt64(int64(v)), true
	case int16:
		return new(big.Rat).SetInt64(int64(v)), true
	case int32:
		return new(big.Rat).SetInt64(int64(v)), true
	case int64:
		return new(big.Rat).SetInt64(v), true
	case uint:
		return new(big.Rat).SetInt64(int64(v)), true
	case uint8:
		return new(big.Rat).SetInt64(int64(v)), true
	case uint16:
		return new(big.Rat).SetInt64(int64(v)), true
	case uint32:
		return new(big.Rat).SetInt64(int64(v)), true
	case uint64:
		return new(big.Rat).SetUint64(v), true
	case float32:
		return new(big.Rat).SetFloat64(float64(v)), true
	case float64:
		return new(big.Rat).SetFloat64(v), true
	case *big.Rat:
		return v, true
	}

	return nil, false
}

// IsIntegral returns true if the value is of an integer kind
func IsIntegral(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}

	return false
}

// CompareNullable compares like Compare but accepts nil values, a nil
// value sorts before any non-nil value.
func CompareNullable(a, b interface{}) (int, error) {
	if a == nil && b == nil {
		return 0, nil
	} else if a == nil {
		return -1, nil
	} else if b == nil {
		return 1, nil
	}

	return Compare(a, b)
}

// Compare compares two scalar values. Numeric values compare by numeric
// value regardless of representation, strings lexically, times
// chronologically.
func Compare(a, b interface{}) (int, error) {
	if ra, ok := RatValue(a); ok {
		rb, ok := RatValue(b)
		if !ok {
			return 0, fmt.Errorf("%w: cannot compare %T with %T",
				ErrMalformedPartialResult,
				a,
				b)
		}

		return ra.Cmp(rb), nil
	}

	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		if !ok {
			break
		}

		return strings.Compare(va, vb), nil
	case time.Time:
		vb, ok := b.(time.Time)
		if !ok {
			break
		}

		if va.Before(vb) {
			return -1, nil
		} else if va.After(vb) {
			return 1, nil
		}

		return 0, nil
	}

	return 0, fmt.Errorf("%w: cannot compare %T with %T",
		ErrMalformedPartialResult,
		a,
		b)
}
