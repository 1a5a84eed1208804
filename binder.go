// binder.go: Bean property binding with type coercion
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// PropertyTag is the struct tag that renames or hides a bean property.
//
//	type HTTPSink struct {
//	    Endpoint string        `plugin:"url"`
//	    Timeout  time.Duration
//	    secret   string        // unexported: never bound
//	    Internal string        `plugin:"-"`
//	}
const PropertyTag = "plugin"

// PropertyBinder resolves settable properties on a bean and assigns raw
// descriptor values to them.
type PropertyBinder interface {
	// Lookup finds the property called name on bean, ignoring case.
	Lookup(bean any, name string) (*BeanProperty, error)

	// Bind coerces raw into the property's declared type and assigns it.
	// A nil raw resets the property to its zero value. When asJSON is set,
	// raw is decoded as JSON into the declared type instead.
	Bind(prop *BeanProperty, raw *string, asJSON bool) error
}

// BeanProperty is a resolved, settable property of one bean instance.
type BeanProperty struct {
	Name     string
	Type     reflect.Type
	BeanType string

	field reflect.Value
}

// detached returns a copy of prop that targets a standalone value of the
// same type instead of the bean field.
func (prop *BeanProperty) detached() *BeanProperty {
	cp := *prop
	cp.field = reflect.New(prop.Type).Elem()
	return &cp
}

// ReflectBinder is the default PropertyBinder. Properties are the exported
// fields of a struct bean held by pointer, including promoted fields of
// embedded structs.
type ReflectBinder struct {
	hook mapstructure.DecodeHookFunc
}

// NewReflectBinder creates a binder with the standard string coercions:
// numbers, booleans, time.Duration, comma separated slices and any
// encoding.TextUnmarshaler.
func NewReflectBinder() *ReflectBinder {
	return &ReflectBinder{
		hook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
}

// Lookup implements PropertyBinder.
func (b *ReflectBinder) Lookup(bean any, name string) (*BeanProperty, error) {
	v := reflect.ValueOf(bean)
	beanType := TypeName(reflect.TypeOf(bean))
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, NewInvalidBeanError(beanType)
	}

	elem := v.Elem()
	for _, f := range reflect.VisibleFields(elem.Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if !matchesProperty(f, name) {
			continue
		}
		field, err := elem.FieldByIndexErr(f.Index)
		if err != nil {
			// promoted through a nil embedded pointer
			continue
		}
		return &BeanProperty{
			Name:     propertyName(f),
			Type:     f.Type,
			BeanType: beanType,
			field:    field,
		}, nil
	}
	return nil, NewPropertyNotFoundError(name, beanType)
}

func matchesProperty(f reflect.StructField, name string) bool {
	tag, hasTag := f.Tag.Lookup(PropertyTag)
	if hasTag {
		tag, _, _ = strings.Cut(tag, ",")
		if tag == "-" {
			return false
		}
		if tag != "" {
			return strings.EqualFold(tag, name)
		}
	}
	return strings.EqualFold(f.Name, name)
}

// propertyName is the tag name when one is given, else the field name.
func propertyName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup(PropertyTag); ok {
		if tag, _, _ = strings.Cut(tag, ","); tag != "" {
			return tag
		}
	}
	return f.Name
}

// Bind implements PropertyBinder.
func (b *ReflectBinder) Bind(prop *BeanProperty, raw *string, asJSON bool) error {
	if !prop.field.CanSet() {
		return NewPropertyNotFoundError(prop.Name, prop.BeanType)
	}

	if raw == nil {
		prop.field.Set(reflect.Zero(prop.Type))
		return nil
	}

	target := reflect.New(prop.Type)
	if asJSON {
		if err := json.Unmarshal([]byte(*raw), target.Interface()); err != nil {
			return NewJSONDecodeError(prop.Name, prop.BeanType, err)
		}
		prop.field.Set(target.Elem())
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       b.hook,
		WeaklyTypedInput: true,
		Result:           target.Interface(),
	})
	if err != nil {
		return NewCoercionError(prop.Name, prop.BeanType, *raw, err)
	}
	if err := decoder.Decode(*raw); err != nil {
		return NewCoercionError(prop.Name, prop.BeanType, *raw, err)
	}
	prop.field.Set(target.Elem())
	return nil
}
