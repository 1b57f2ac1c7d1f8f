package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.json.gz")
	file, err := os.Create(path)
	require.NoError(t, err)

	zw := gzip.NewWriter(file)
	_, err = zw.Write([]byte(sampleCorpus))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())

	jobs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, jobs.Len())

	raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus, string(raw))
}

func TestLoadRejectsBrokenGzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.json.gz")
	require.NoError(t, os.WriteFile(path, []byte(sampleCorpus), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDecodeFlattensHTMLDescriptions(t *testing.T) {
	t.Parallel()

	const raw = `[{"id": "1", "title": "Engineer", "description": "<p>Build  APIs</p><ul><li>Go</li><li>SQL</li></ul><script>x()</script>", "embedding": [1]},
{"id": "2", "title": "Analyst", "description": "salary < 100k and > 50k", "embedding": [1]}]`

	jobs, err := Decode(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Build APIs Go SQL", jobs.Items[0].Description)
	assert.Equal(t, "salary < 100k and > 50k", jobs.Items[1].Description)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	jobs, err := Decode(strings.NewReader(sampleCorpus))
	require.NoError(t, err)
	jobs.Items[0].EmbeddingModel = "text-embedding-004"

	for _, name := range []string{"jobs.json", "jobs.json.gz"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, Save(path, jobs))

		loaded, err := Load(path)
		require.NoError(t, err, name)
		require.Equal(t, 2, loaded.Len(), name)
		assert.Equal(t, "text-embedding-004", loaded.Items[0].EmbeddingModel, name)
		assert.Equal(t, []float64{1, 0.5, 0}, loaded.Items[1].Embedding, name)
		assert.Equal(t, map[string]int{"text-embedding-004": 1, UnrecordedModel: 1}, loaded.EmbeddingModels(), name)
	}

	dumped, err := jobs.DumpToTmpFile()
	require.NoError(t, err)
	defer os.Remove(dumped)

	data, err := os.ReadFile(dumped)
	require.NoError(t, err)
	violations, err := CheckSchema(data)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		data       string
		violations int
	}{
		{name: "valid", data: `[{"id": 1, "title": "Go", "embedding": [0.1, 2]}]`},
		{name: "missing embedding", data: `[{"id": "a", "title": "Go"}]`, violations: 1},
		{name: "string in embedding", data: `[{"id": "a", "title": "Go", "embedding": ["0.5"]}]`, violations: 1},
		{name: "empty", data: `[]`, violations: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CheckSchema([]byte(tt.data))
			require.NoError(t, err)
			assert.Len(t, got, tt.violations)
		})
	}

	_, err := CheckSchema([]byte(`{not json`))
	assert.Error(t, err)
}
