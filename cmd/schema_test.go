package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nprint.dev/nprint/internal/core/schema"
)

func TestBuildSchemaDoc(t *testing.T) {
	s, err := schema.Build(schema.ProtoIPv4, schema.ProtoTCP, schema.ProtoUDP)
	assert.NoError(t, err)

	doc := buildSchemaDoc(s)
	assert.Equal(t, 704, doc.TotalColumns)
	assert.Len(t, doc.Protocols, 3)

	assert.Equal(t, "ipv4", doc.Protocols[0].Name)
	assert.Equal(t, "0-159", doc.Protocols[0].Columns)
	assert.Equal(t, "ver", doc.Protocols[0].Fields[0].Name)
	assert.Equal(t, 0, doc.Protocols[0].Fields[0].First)

	assert.Equal(t, "tcp", doc.Protocols[1].Name)
	assert.Equal(t, "160-639", doc.Protocols[1].Columns)
	opt := doc.Protocols[1].Fields[len(doc.Protocols[1].Fields)-1]
	assert.Equal(t, "opt", opt.Name)
	assert.Equal(t, 320, opt.Bits)
	assert.Equal(t, 320, opt.First)

	assert.Equal(t, "udp", doc.Protocols[2].Name)
	assert.Equal(t, "640-703", doc.Protocols[2].Columns)
}
