// descriptor.go: Plugin descriptor model and XML parsing
//
// A descriptor is an XML document whose top-level <add> and <set> elements
// describe plugins to create or change:
//
//	<plugins>
//	  <add class="example.com/app.Simple1Impl" name="Simple1">
//	    <document>
//	      <title>Simple</title>
//	      <summary>A simple plugin</summary>
//	    </document>
//	    <properties>
//	      <prop name="int1" value="100"/>
//	      <prop name="settings" type="json"><![CDATA[{"k":"v"}]]></prop>
//	    </properties>
//	  </add>
//	  <set name="Simple1">
//	    <properties><prop name="bool1" value="true"/></properties>
//	  </set>
//	</plugins>
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"strings"

	"github.com/beevik/etree"
)

// Element and attribute names of the descriptor format.
const (
	elemPlugins     = "plugins"
	elemAdd         = "add"
	elemSet         = "set"
	elemDocument    = "document"
	elemTitle       = "title"
	elemSummary     = "summary"
	elemDescription = "description"
	elemProperties  = "properties"
	elemProp        = "prop"

	attrClass = "class"
	attrName  = "name"
	attrValue = "value"
	attrType  = "type"

	// PropertyTypeJSON marks a prop whose value is JSON for the declared
	// property type.
	PropertyTypeJSON = "json"
)

// OperationKind distinguishes <add> from <set>.
type OperationKind int

const (
	OpAdd OperationKind = iota
	OpSet
)

// String returns the element name of the operation.
func (k OperationKind) String() string {
	switch k {
	case OpAdd:
		return elemAdd
	case OpSet:
		return elemSet
	default:
		return "unknown"
	}
}

// Descriptor is one parsed and validated descriptor resource.
type Descriptor struct {
	Resource   string
	Operations []Operation
}

// Operation is a single <add> or <set> element.
type Operation struct {
	Kind     OperationKind
	Class    string
	Name     string
	Resource string

	// HasDocument is set when a <document> child was present.
	HasDocument bool
	Metadata    Metadata
	Properties  []PropertySpec
}

// Metadata holds the trimmed <document> texts.
type Metadata struct {
	Title       string
	Summary     string
	Description string
}

// PropertySpec is one <prop> element.
type PropertySpec struct {
	Name string
	// Value is only meaningful when HasValue is set; an empty or missing
	// value is reported as absent.
	Value    string
	HasValue bool
	Type     string
}

// IsJSON reports whether the value must be decoded as JSON.
func (p PropertySpec) IsJSON() bool {
	return strings.EqualFold(p.Type, PropertyTypeJSON)
}

// RawValue returns the value as a pointer, nil when absent.
func (p PropertySpec) RawValue() *string {
	if !p.HasValue {
		return nil
	}
	v := p.Value
	return &v
}

// TargetName is the plugin name the operation applies to: the explicit name,
// or the class for an <add> without one.
func (op Operation) TargetName() string {
	if op.Name != "" {
		return op.Name
	}
	if op.Kind == OpAdd {
		return op.Class
	}
	return ""
}

// ParseDescriptor parses and validates data as the descriptor named resource.
func ParseDescriptor(resource string, data []byte) (*Descriptor, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, NewDescriptorParseError(resource, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, NewDescriptorParseError(resource, errEmptyDocument)
	}
	if err := ValidateDescriptorTree(root); err != nil {
		return nil, NewDescriptorSchemaError(resource, err)
	}
	return buildDescriptor(resource, root)
}

func buildDescriptor(resource string, root *etree.Element) (*Descriptor, error) {
	desc := &Descriptor{Resource: resource}
	for _, el := range root.ChildElements() {
		var op Operation
		switch el.Tag {
		case elemAdd:
			op = Operation{Kind: OpAdd}
		case elemSet:
			op = Operation{Kind: OpSet}
		default:
			return nil, NewUnknownOperationError(resource, el.Tag)
		}
		op.Resource = resource
		op.Class = strings.TrimSpace(el.SelectAttrValue(attrClass, ""))
		op.Name = strings.TrimSpace(el.SelectAttrValue(attrName, ""))

		if op.Kind == OpAdd && op.Class == "" {
			return nil, NewMissingAttributeError(resource, elemAdd, attrClass)
		}
		if op.Kind == OpSet && op.Name == "" {
			return nil, NewMissingAttributeError(resource, elemSet, attrName)
		}

		if docEl := el.SelectElement(elemDocument); docEl != nil {
			op.HasDocument = true
			op.Metadata = Metadata{
				Title:       childText(docEl, elemTitle),
				Summary:     childText(docEl, elemSummary),
				Description: childText(docEl, elemDescription),
			}
		}

		if propsEl := el.SelectElement(elemProperties); propsEl != nil {
			for _, propEl := range propsEl.SelectElements(elemProp) {
				spec, err := buildPropertySpec(resource, propEl)
				if err != nil {
					return nil, err
				}
				op.Properties = append(op.Properties, spec)
			}
		}

		desc.Operations = append(desc.Operations, op)
	}
	return desc, nil
}

func buildPropertySpec(resource string, el *etree.Element) (PropertySpec, error) {
	name := strings.TrimSpace(el.SelectAttrValue(attrName, ""))
	if name == "" {
		return PropertySpec{}, NewMissingAttributeError(resource, elemProp, attrName)
	}
	spec := PropertySpec{
		Name: name,
		Type: strings.TrimSpace(el.SelectAttrValue(attrType, "")),
	}

	var raw string
	if attr := el.SelectAttr(attrValue); attr != nil {
		raw = attr.Value
	} else {
		raw = el.Text()
	}
	if v := strings.TrimSpace(raw); v != "" {
		spec.Value = v
		spec.HasValue = true
	}
	return spec, nil
}

func childText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// Adds returns the <add> operations in document order.
func (d *Descriptor) Adds() []Operation {
	return d.filter(OpAdd)
}

// Sets returns the <set> operations in document order.
func (d *Descriptor) Sets() []Operation {
	return d.filter(OpSet)
}

func (d *Descriptor) filter(kind OperationKind) []Operation {
	var out []Operation
	for _, op := range d.Operations {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Plan is the two-phase change set of one load: every <add> of every
// descriptor, followed by every <set>, each list in encounter order.
type Plan struct {
	Adds []Operation
	Sets []Operation
}

// NewPlan partitions the operations of descs.
func NewPlan(descs ...*Descriptor) Plan {
	var plan Plan
	for _, d := range descs {
		plan.Adds = append(plan.Adds, d.Adds()...)
		plan.Sets = append(plan.Sets, d.Sets()...)
	}
	return plan
}

// Ordered returns the operations in application order.
func (p Plan) Ordered() []Operation {
	out := make([]Operation, 0, len(p.Adds)+len(p.Sets))
	out = append(out, p.Adds...)
	return append(out, p.Sets...)
}
