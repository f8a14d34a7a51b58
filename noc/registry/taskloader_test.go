package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileTaskLoaderLoadMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("core-a: 0\ncore-b: 1\n"), 0o644))

	loader := FileTaskLoader{}
	mapping, err := loader.LoadMapping(path)
	require.NoError(t, err)
	require.Equal(t, 0, mapping["core-a"])
	require.Equal(t, 1, mapping["core-b"])
}

func TestFileTaskLoaderLoadMappingMissingFile(t *testing.T) {
	loader := FileTaskLoader{}
	_, err := loader.LoadMapping(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestFileTaskLoaderLoadCTGUsesParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctg.bin")
	require.NoError(t, os.WriteFile(path, []byte("irrelevant-bytes"), 0o644))

	loader := FileTaskLoader{
		Parse: func(data []byte) (Apcg, error) {
			return Apcg{Tasks: []CtgTask{{ID: string(data)}}}, nil
		},
	}
	apcg, err := loader.LoadCTG(path)
	require.NoError(t, err)
	require.Len(t, apcg.Tasks, 1)
	require.Equal(t, "irrelevant-bytes", apcg.Tasks[0].ID)
}

func TestParseApcgYAMLDecodesTasksAndOutbound(t *testing.T) {
	doc := `
tasks:
  - id: a
    execution_time: 2.5
    outbound:
      b: 256
  - id: b
    execution_time: 1
`
	apcg, err := ParseApcgYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, apcg.Tasks, 2)
	require.Equal(t, "a", apcg.Tasks[0].ID)
	require.Equal(t, 2.5, apcg.Tasks[0].ExecutionTime)
	require.Equal(t, int64(256), apcg.Tasks[0].Outbound["b"])
	require.Empty(t, apcg.Tasks[1].Outbound)
}

func TestParseApcgYAMLRejectsMalformedYAML(t *testing.T) {
	_, err := ParseApcgYAML([]byte("tasks: [this is not a task list"))
	require.Error(t, err)
}

func TestFileTaskLoaderLoadCTGNilParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctg.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	loader := FileTaskLoader{}
	_, err := loader.LoadCTG(path)
	require.Error(t, err)
}
