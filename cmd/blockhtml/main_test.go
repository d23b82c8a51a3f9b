package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/derickschaefer/blockhtml"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunRender(t *testing.T) {
	path := writeTemp(t, `{"blocks":[{"type":"header","data":{"level":2,"text":"Title"}}]}`)

	var out bytes.Buffer
	require.NoError(t, runRender([]string{path}, &out))
	require.Equal(t, blockhtml.ContainerOpen+"<h2>Title</h2>"+blockhtml.ContainerClose, out.String())
}

func TestRunRenderPassthrough(t *testing.T) {
	path := writeTemp(t, "plain text")

	var out bytes.Buffer
	require.NoError(t, runRender([]string{path}, &out))
	require.Equal(t, "plain text", out.String())
}

func TestRunRenderMissingFile(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, runRender([]string{filepath.Join(t.TempDir(), "nope.json")}, &out))
}

func TestRunValidate(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{`{"blocks":[{"type":"hr"}]}`, true},
		{`[1,2]`, false},
		{`{"blocks":[{"type":1}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			var out bytes.Buffer
			ok, err := runValidate([]string{writeTemp(t, tt.content)}, &out)
			require.NoError(t, err)
			require.Equal(t, tt.want, ok)
			require.NotEmpty(t, out.String())
		})
	}
}
