package content

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"docseq/pkg/contract"
)

func writeContent(t *testing.T, root, split, body string) {
	t.Helper()
	dir := filepath.Join(root, split)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
}

func TestLoadAcrossSplits(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "train",
		`{"name":"a","contents":[{"tool_name":"tesseract","common_format":{"tokens":["x"],"positions":[[0,0,1,1]]}},`+
			`{"tool_name":"microsoft_cv","common_format":{"tokens":["X","Y"],"positions":[[0,0,1,1],[1,1,2,2]]}}]}`+"\n"+
			`{broken`+"\n")
	writeContent(t, root, "test",
		`{"name":"b","contents":[{"tool_name":"microsoft_cv","common_format":{"tokens":["b"],"positions":[[0,0,1,1]]}}]}`)

	s, err := New(root, "microsoft_cv", nil)
	require.NoError(t, err)
	ctx := context.Background()

	d, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []string{"X", "Y"}, d.Tokens())

	d, err = s.Load(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, d.Tokens())

	_, err = s.Load(ctx, "missing")
	require.ErrorIs(t, err, contract.ErrMissingDocument)
}

func TestProviderAbsentInRecord(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "dev",
		`{"name":"a","contents":[{"tool_name":"tesseract","common_format":{"tokens":[],"positions":[]}}]}`)
	s, err := New(root, "microsoft_cv", nil)
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "a")
	require.ErrorIs(t, err, contract.ErrMissingDocument)
}

func TestShapeMismatch(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "dev",
		`{"name":"a","contents":[{"tool_name":"t","common_format":{"tokens":["a","b"],"positions":[]}}]}`)
	s, err := New(root, "t", nil)
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "a")
	require.ErrorIs(t, err, contract.ErrShapeMismatch)
}

func TestNoContentFiles(t *testing.T) {
	_, err := New(t.TempDir(), "t", nil)
	require.ErrorIs(t, err, contract.ErrConfiguration)
}

func TestConcurrentLoad(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "train",
		`{"name":"a","contents":[{"tool_name":"t","common_format":{"tokens":["a"],"positions":[[0,0,1,1]]}}]}`)
	s, err := New(root, "t", nil)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Load(context.Background(), "a")
			if err != nil || d.Token(0) != "a" {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()
}
