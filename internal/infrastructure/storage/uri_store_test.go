package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIStore_Validate(t *testing.T) {
	store := NewURIStore("file", "https")

	tests := []struct {
		name    string
		uris    []string
		wantErr bool
	}{
		{"empty list", nil, false},
		{"allowed schemes", []string{"file:///a.pdf", "https://docs.example.com/b"}, false},
		{"disallowed scheme", []string{"ftp://host/a.pdf"}, true},
		{"relative path", []string{"receipts/a.pdf"}, true},
		{"one bad among good", []string{"file:///a.pdf", "no-scheme"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Validate(context.Background(), tt.uris)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestURIStore_NoSchemesAcceptsAnyAbsolute(t *testing.T) {
	store := NewURIStore()

	assert.NoError(t, store.Validate(context.Background(), []string{"s3://bucket/key"}))
	assert.Error(t, store.Validate(context.Background(), []string{"just-a-name"}))
}
