package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lineage-cli/internal/lineage"
)

func sampleLineage() *lineage.Lineage {
	return &lineage.Lineage{
		Downstream: []lineage.Edge{{Source: "src", Target: "dst"}},
		Upstream:   []lineage.Edge{{Source: "https://www.tpc.org/", Target: "src"}},
	}
}

func TestWriteLineage_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLineage(&buf, sampleLineage(), "text"))
	assert.Equal(t, "downstream:\n  src -> dst\nupstream:\n  src <- https://www.tpc.org/\n", buf.String())
}

func TestWriteLineage_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLineage(&buf, sampleLineage(), "json"))

	var got lineage.Lineage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *sampleLineage(), got)
}

func TestWriteLineage_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLineage(&buf, sampleLineage(), "yaml"))
	assert.Contains(t, buf.String(), "downstream:")

	var got lineage.Lineage
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *sampleLineage(), got)
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml"} {
		assert.NoError(t, checkFormat(f))
	}
	assert.Error(t, checkFormat("xml"))
}
