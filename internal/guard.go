package internal

import (
	"fmt"
	"os"
)

// MaxUploadBytes is the largest audio file accepted for transcription.
const MaxUploadBytes int64 = 20_000_000

// OptimizedSizeLimit is the size under which mp3/wav/flac input may skip conversion.
const OptimizedSizeLimit int64 = 18 << 20

// CheckSize stats the asset and rejects it if it exceeds limit.
// The asset's Size field is refreshed from disk.
func CheckSize(asset *AudioAsset, limit int64) error {
	info, err := os.Stat(asset.Path)
	if err != nil {
		return fmt.Errorf("checking audio size: %w: %w", ErrConvert, err)
	}
	asset.Size = info.Size()

	if asset.Size > limit {
		return &SizeError{Path: asset.Path, Size: asset.Size, Limit: limit}
	}
	return nil
}
