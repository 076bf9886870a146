package loader

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/testutil"
)

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		expected bool
	}{
		{"Docx", "onboarding.docx", true},
		{"UpperCase", "REFUNDS.DOCX", true},
		{"NestedPath", "hr/leave/policy.docx", true},
		{"LockFile", "~$onboarding.docx", false},
		{"Pdf", "policy.pdf", false},
		{"LegacyDoc", "policy.doc", false},
		{"NoExtension", "README", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsEligible(tt.file))
		})
	}
}

func TestLoad_RecursiveAndFiltered(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDocx(t, filepath.Join(root, "a.docx"), "Refunds are approved by Finance.")
	testutil.WriteDocx(t, filepath.Join(root, "hr", "b.docx"), "Leave requests go to HR.", "Second paragraph.")
	testutil.WriteDocx(t, filepath.Join(root, "~$a.docx"), "lock file")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))

	result, err := New().Load(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Documents, 2)
	assert.Equal(t, filepath.Join(root, "a.docx"), result.Documents[0].Path)
	assert.Equal(t, "Refunds are approved by Finance.", result.Documents[0].Text)
	assert.Equal(t, filepath.Join(root, "hr", "b.docx"), result.Documents[1].Path)
	assert.Equal(t, "Leave requests go to HR.\n\nSecond paragraph.", result.Documents[1].Text)
	assert.Empty(t, result.Skipped)
}

func TestLoad_SkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDocx(t, filepath.Join(root, "good.docx"), "Escalate to the shift lead.")
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.docx"), []byte("not a zip"), 0o644))
	testutil.WriteDocx(t, filepath.Join(root, "blank.docx"), "   ")

	result, err := New().Load(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, filepath.Join(root, "good.docx"), result.Documents[0].Path)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, filepath.Join(root, "blank.docx"), result.Skipped[0].Path)
	assert.Equal(t, "empty document", result.Skipped[0].Reason)
	assert.Equal(t, filepath.Join(root, "broken.docx"), result.Skipped[1].Path)
	assert.Contains(t, result.Skipped[1].Reason, "open archive")
}

func TestLoad_EmptyFolder(t *testing.T) {
	result, err := New().Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.Skipped)
}

func TestLoad_MissingFolder(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestLoad_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.docx")
	testutil.WriteDocx(t, path, "text")

	_, err := New().Load(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestLoad_CustomExtractorAndCancellation(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.docx", "b.docx"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}

	calls := 0
	l := NewWithExtractor(func(path string) (string, error) {
		calls++
		if strings.HasSuffix(path, "b.docx") {
			return "", errors.New("locked by another process")
		}
		return "content of " + filepath.Base(path), nil
	})

	result, err := l.Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "content of a.docx", result.Documents[0].Text)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "locked by another process", result.Skipped[0].Reason)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractDocumentXML(t *testing.T) {
	xmlDoc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Step</w:t></w:r><w:r><w:tab/><w:t>1</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>
<w:p><w:r><w:instrText>PAGE</w:instrText><w:t xml:space="preserve"> kept </w:t></w:r></w:p>
</w:body>
</w:document>`

	text, err := extractDocumentXML(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	assert.Equal(t, "Step\t1\n\nLine one\nLine two\n\nkept", text)
}

func TestExtractDocumentXML_Malformed(t *testing.T) {
	_, err := extractDocumentXML(strings.NewReader(`<w:document xmlns:w="x"><w:p>`))
	assert.Error(t, err)
}

func TestExtractDocx_EmptyBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	testutil.WriteDocx(t, path)

	text, err := ExtractDocx(path)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtractDocx_MissingDocumentPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styles-only.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ExtractDocx(path)
	assert.ErrorIs(t, err, errNoDocumentPart)
}
