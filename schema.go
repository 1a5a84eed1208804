// schema.go: Descriptor schema validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	_ "embed"

	"github.com/beevik/etree"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DescriptorSchema is the embedded JSON schema every descriptor element tree
// is validated against.
//
//go:embed schema/plugins.schema.json
var DescriptorSchema []byte

var errEmptyDocument = errors.New("document has no root element")

// GetDescriptorSchema compiles the descriptor schema once and caches it.
var GetDescriptorSchema = sync.OnceValues[*jsonschema.Schema, error](func() (*jsonschema.Schema, error) {
	return compileSchema(DescriptorSchema)
})

func compileSchema(data []byte) (*jsonschema.Schema, error) {
	const schemaFile = "schema/plugins.schema.json"
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, NewSchemaCompileError(err)
	}
	if err := c.AddResource(schemaFile, doc); err != nil {
		return nil, NewSchemaCompileError(err)
	}
	sch, err := c.Compile(schemaFile)
	if err != nil {
		return nil, NewSchemaCompileError(err)
	}
	return sch, nil
}

// ValidateDescriptorTree validates an XML element tree against the
// descriptor schema. The tree is first projected onto a JSON value where
// each element becomes {"tag", "attrs", "children", "text"}.
func ValidateDescriptorTree(root *etree.Element) error {
	schema, err := GetDescriptorSchema()
	if err != nil {
		return err
	}
	return schema.Validate(elementModel(root))
}

func elementModel(el *etree.Element) map[string]any {
	attrs := make(map[string]any, len(el.Attr))
	for _, a := range el.Attr {
		// namespace declarations are not descriptor attributes
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		attrs[a.Key] = a.Value
	}

	children := make([]any, 0, len(el.Child))
	for _, child := range el.ChildElements() {
		children = append(children, elementModel(child))
	}

	model := map[string]any{
		"tag":      el.Tag,
		"attrs":    attrs,
		"children": children,
	}
	if text := strings.TrimSpace(el.Text()); text != "" {
		model["text"] = text
	}
	return model
}
