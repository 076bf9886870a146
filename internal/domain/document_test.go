package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSourceDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *SourceDocument
		wantErr string
	}{
		{"Nil", nil, "cannot be nil"},
		{"MissingPath", NewSourceDocument("", "text"), "path is required"},
		{"Blank", NewSourceDocument("a.docx", "  \n\t"), "has no text"},
		{"Valid", NewSourceDocument("a.docx", "Step 1"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceDocument(tt.doc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
