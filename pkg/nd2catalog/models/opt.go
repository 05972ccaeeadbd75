package models

import "encoding/json"

// Opt holds a value that may be absent. The zero value is absent.
type Opt[T any] struct {
	v  T
	ok bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{v: v, ok: true}
}

// None returns an absent Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSet reports whether the value is present.
func (o Opt[T]) IsSet() bool {
	return o.ok
}

// Or returns the value, or def when absent.
func (o Opt[T]) Or(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// MarshalJSON encodes an absent value as null.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as absent.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// mergeOpt copies src into dst when src is set and either dst is unset or
// overwrite is requested.
func mergeOpt[T any](dst *Opt[T], src Opt[T], overwrite bool) {
	if !src.ok {
		return
	}
	if dst.ok && !overwrite {
		return
	}
	*dst = src
}

func mergeSlice[T any](dst *[]T, src []T, overwrite bool) {
	if src == nil {
		return
	}
	if *dst != nil && !overwrite {
		return
	}
	*dst = append([]T(nil), src...)
}
