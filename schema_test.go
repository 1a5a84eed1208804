// schema_test.go: Embedded descriptor schema tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorSchemaCompiles(t *testing.T) {
	first, err := GetDescriptorSchema()
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := GetDescriptorSchema()
	require.NoError(t, err)
	assert.Same(t, first, second, "schema is compiled once")
}

func TestCompileSchemaRejectsBrokenInput(t *testing.T) {
	_, err := compileSchema([]byte(`{not json`))
	assert.True(t, HasErrorCode(err, ErrCodeSchemaCompileFailure))

	_, err = compileSchema([]byte(`{"type": 12}`))
	assert.True(t, HasErrorCode(err, ErrCodeSchemaCompileFailure))
}

func TestElementModel(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<plugins xmlns="urn:plugins" xmlns:x="urn:x">
  <add class="c" name="n">
    <properties><prop name="p">  v  </prop></properties>
  </add>
</plugins>`))

	model := elementModel(doc.Root())
	assert.Equal(t, "plugins", model["tag"])
	assert.Empty(t, model["attrs"], "namespace declarations are dropped")
	_, hasText := model["text"]
	assert.False(t, hasText, "whitespace-only text is omitted")

	children := model["children"].([]any)
	require.Len(t, children, 1)
	add := children[0].(map[string]any)
	assert.Equal(t, map[string]any{"class": "c", "name": "n"}, add["attrs"])

	prop := add["children"].([]any)[0].(map[string]any)["children"].([]any)[0].(map[string]any)
	assert.Equal(t, "v", prop["text"])
}

func TestValidateDescriptorTree(t *testing.T) {
	valid := etree.NewDocument()
	require.NoError(t, valid.ReadFromString(simpleDescriptor))
	assert.NoError(t, ValidateDescriptorTree(valid.Root()))

	invalid := etree.NewDocument()
	require.NoError(t, invalid.ReadFromString(`<plugins><add/></plugins>`))
	assert.Error(t, ValidateDescriptorTree(invalid.Root()))

	tooMany := etree.NewDocument()
	require.NoError(t, tooMany.ReadFromString(`<plugins><set name="a"><document/><properties/><document/></set></plugins>`))
	assert.Error(t, ValidateDescriptorTree(tooMany.Root()))
}

func TestValidateDescriptorTreeOperationChildren(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		wantErr bool
	}{
		{"document and properties", `<plugins><add class="c"><document/><properties/></add></plugins>`, false},
		{"properties before document", `<plugins><set name="a"><properties/><document/></set></plugins>`, false},
		{"properties only", `<plugins><add class="c"><properties><prop name="x" value="1"/></properties></add></plugins>`, false},
		{"no children", `<plugins><set name="a"/></plugins>`, false},
		{"two properties on add", `<plugins><add class="c"><properties><prop name="int1" value="1"/></properties><properties><prop name="bool1" value="true"/></properties></add></plugins>`, true},
		{"two documents on set", `<plugins><set name="a"><document><title>x</title></document><document><title>y</title></document></set></plugins>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromString(tt.xml))
			err := ValidateDescriptorTree(doc.Root())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
