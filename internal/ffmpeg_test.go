package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConvertArgs(t *testing.T) {
	common := []string{
		"-y", "-v", "error", "-i", "in.webm", "-vn",
		"-map_metadata", "-1", "-fflags", "+bitexact", "-flags:a", "+bitexact",
		"-ac", "1", "-ar", "22050",
	}

	tests := []struct {
		format AudioFormat
		codec  []string
	}{
		{FormatMP3, []string{"-c:a", "libmp3lame", "-b:a", "128k", "-write_xing", "0", "-id3v2_version", "0"}},
		{FormatWAV, []string{"-c:a", "pcm_s16le"}},
		{FormatFLAC, []string{"-c:a", "flac"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			args := BuildConvertArgs("in.webm", "out."+string(tt.format), tt.format)
			want := append(append(append([]string{}, common...), tt.codec...), "out."+string(tt.format))
			assert.Equal(t, want, args)
		})
	}
}

func TestBuildConvertArgsDeterministic(t *testing.T) {
	a := BuildConvertArgs("in.m4a", "out.mp3", FormatMP3)
	b := BuildConvertArgs("in.m4a", "out.mp3", FormatMP3)
	assert.Equal(t, a, b)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "abc.webm")
	sparseFile(t, src, 5_000_000)

	runner := &fakeRunner{outputSize: 1_200_000}
	audio := NewAudio(runner, false)

	got, err := audio.Convert(context.Background(), &AudioAsset{Path: src, Size: 5_000_000, Format: "webm"}, FormatMP3, false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "abc_converted.mp3"), got.Path)
	assert.Equal(t, int64(1_200_000), got.Size)
	assert.Equal(t, FormatMP3, got.Format)
	assert.Equal(t, 22050, got.SampleRate)
	assert.Equal(t, 1, got.Channels)
	assert.Equal(t, "128k", got.Bitrate)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, FFmpegCommand, runner.calls[0][0])
}

func TestConvert_FailureWrapsErrConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "abc.webm")
	sparseFile(t, src, 100)

	audio := NewAudio(&fakeRunner{err: errors.New("exit status 1")}, false)
	_, err := audio.Convert(context.Background(), &AudioAsset{Path: src, Size: 100}, FormatWAV, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvert)
}

func TestConvert_Passthrough(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "abc.mp3")
	sparseFile(t, src, 3_000_000)
	asset := &AudioAsset{Path: src, Size: 3_000_000, Format: FormatMP3}

	runner := &fakeRunner{outputSize: 1}
	audio := NewAudio(runner, false)

	got, err := audio.Convert(context.Background(), asset, FormatMP3, true)
	require.NoError(t, err)
	assert.Same(t, asset, got)
	assert.Zero(t, runner.callCount())

	// passthrough off re-encodes even optimized input
	_, err = audio.Convert(context.Background(), asset, FormatMP3, false)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.callCount())
}

func TestConvert_PassthroughIgnoresLargeOrForeignInput(t *testing.T) {
	assert.False(t, isOptimized(&AudioAsset{Format: FormatMP3, Size: OptimizedSizeLimit + 1}))
	assert.False(t, isOptimized(&AudioAsset{Format: "webm", Size: 1000}))
	assert.True(t, isOptimized(&AudioAsset{Format: FormatFLAC, Size: 1000}))
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{output: []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264"},
			{"codec_type": "audio", "codec_name": "mp3", "sample_rate": "22050", "channels": 1}
		],
		"format": {"duration": "61.5", "bit_rate": "128000", "size": "983040"}
	}`)}
	info, err := NewAudio(runner, false).Probe(context.Background(), "x.mp3")
	require.NoError(t, err)

	assert.Equal(t, "mp3", info.Codec)
	assert.Equal(t, 22050, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.InDelta(t, 61.5, info.Duration, 0.001)
	assert.Equal(t, int64(128000), info.Bitrate)
	assert.Equal(t, int64(983040), info.Size)
}

func TestPartsFor(t *testing.T) {
	assert.Equal(t, 1, PartsFor(10, 20))
	assert.Equal(t, 1, PartsFor(MaxUploadBytes, MaxUploadBytes))
	assert.Equal(t, 2, PartsFor(25_000_000, MaxUploadBytes))
	assert.Equal(t, 3, PartsFor(45_000_000, MaxUploadBytes))
}

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{output: []byte("90.0\n"), outputSize: 10}
	audio := NewAudio(runner, false)

	parts, err := audio.Split(context.Background(), filepath.Join(dir, "talk.mp3"), filepath.Join(dir, "parts"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "parts", "talk_part_1.mp3"),
		filepath.Join(dir, "parts", "talk_part_2.mp3"),
		filepath.Join(dir, "parts", "talk_part_3.mp3"),
	}, parts)

	// one ffprobe call, then one ffmpeg call per part starting at 0, 30, 60
	require.Len(t, runner.calls, 4)
	assert.Equal(t, FFprobeCommand, runner.calls[0][0])
	for i, start := range []string{"0", "30", "60"} {
		call := runner.calls[i+1]
		assert.Contains(t, call, "-ss")
		assert.Equal(t, start, call[indexOf(call, "-ss")+1])
		assert.Equal(t, "30", call[indexOf(call, "-t")+1])
	}

	_, err = audio.Split(context.Background(), "talk.mp3", dir, 0)
	assert.Error(t, err)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatMP3, FormatFromPath("/tmp/a.MP3"))
	assert.Equal(t, AudioFormat("webm"), FormatFromPath("a.b.webm"))
}
