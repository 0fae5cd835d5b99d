package internal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSize(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"small mp3", 9_600_000, false},
		{"exactly at limit", MaxUploadBytes, false},
		{"one byte over", MaxUploadBytes + 1, true},
		{"large wav", 25_000_000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".mp3")
			sparseFile(t, path, tt.size)

			// Size is refreshed from disk, not trusted
			asset := &AudioAsset{Path: path, Size: 1}
			err := CheckSize(asset, MaxUploadBytes)
			assert.Equal(t, tt.size, asset.Size)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTooLarge))

			var sizeErr *SizeError
			require.ErrorAs(t, err, &sizeErr)
			assert.Equal(t, tt.size, sizeErr.Size)
			assert.Equal(t, MaxUploadBytes, sizeErr.Limit)
			assert.Contains(t, err.Error(), FormatBytes(tt.size))
			assert.Contains(t, err.Error(), "20.00 MB")
		})
	}
}

func TestCheckSize_MissingFile(t *testing.T) {
	err := CheckSize(&AudioAsset{Path: filepath.Join(t.TempDir(), "nope.mp3")}, MaxUploadBytes)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvert)
	assert.NotErrorIs(t, err, ErrTooLarge)
}
