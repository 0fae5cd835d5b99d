package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Encoder settings shared by every conversion target
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"

	TargetSampleRate = 22050
	TargetChannels   = 1
	TargetBitrate    = "128k"

	codecMP3  = "libmp3lame"
	codecWAV  = "pcm_s16le"
	codecFLAC = "flac"
)

// AudioInfo is the subset of ffprobe output we report
type AudioInfo struct {
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Bitrate    int64   `json:"bitrate"`
	Size       int64   `json:"size"`
}

// Audio handles audio file operations using FFmpeg
type Audio struct {
	cmdRunner CommandRunner
	verbose   bool
}

// NewAudio creates a new audio processor
func NewAudio(cmdRunner CommandRunner, verbose bool) *Audio {
	return &Audio{
		cmdRunner: cmdRunner,
		verbose:   verbose,
	}
}

// BuildConvertArgs returns the ffmpeg arguments that re-encode input into
// a mono 22050 Hz file of the given format. Metadata is stripped and the
// bitexact flags are set so identical input yields identical output.
func BuildConvertArgs(input, output string, format AudioFormat) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-i", input,
		"-vn",
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-flags:a", "+bitexact",
		"-ac", strconv.Itoa(TargetChannels),
		"-ar", strconv.Itoa(TargetSampleRate),
	}

	switch format {
	case FormatWAV:
		args = append(args, "-c:a", codecWAV)
	case FormatFLAC:
		args = append(args, "-c:a", codecFLAC)
	default:
		args = append(args, "-c:a", codecMP3, "-b:a", TargetBitrate, "-write_xing", "0", "-id3v2_version", "0")
	}

	return append(args, output)
}

// Convert re-encodes asset into format next to the input file and returns
// the new asset. With passthrough set, mp3/wav/flac input at or below
// OptimizedSizeLimit is returned unchanged.
func (a *Audio) Convert(ctx context.Context, asset *AudioAsset, format AudioFormat, passthrough bool) (*AudioAsset, error) {
	if passthrough && isOptimized(asset) {
		if a.verbose {
			fmt.Fprintf(os.Stderr, "Audio already optimized (%s), skipping conversion\n", FormatBytes(asset.Size))
		}
		return asset, nil
	}

	base := strings.TrimSuffix(filepath.Base(asset.Path), filepath.Ext(asset.Path))
	output := filepath.Join(filepath.Dir(asset.Path), base+"_converted."+string(format))

	cmdOutput, err := a.cmdRunner.Run(ctx, FFmpegCommand, BuildConvertArgs(asset.Path, output, format)...)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg failed: %w\nOutput: %s", ErrConvert, err, string(cmdOutput))
	}

	info, err := os.Stat(output)
	if err != nil {
		return nil, fmt.Errorf("%w: converted file missing: %w", ErrConvert, err)
	}

	converted := &AudioAsset{
		Path:       output,
		Size:       info.Size(),
		Format:     format,
		SampleRate: TargetSampleRate,
		Channels:   TargetChannels,
	}
	if format == FormatMP3 {
		converted.Bitrate = TargetBitrate
	}

	if a.verbose {
		fmt.Fprintf(os.Stderr, "Converted %s (%s) to %s (%s)\n",
			filepath.Base(asset.Path), FormatBytes(asset.Size), filepath.Base(output), FormatBytes(converted.Size))
	}

	return converted, nil
}

func isOptimized(asset *AudioAsset) bool {
	switch asset.Format {
	case FormatMP3, FormatWAV, FormatFLAC:
		return asset.Size > 0 && asset.Size <= OptimizedSizeLimit
	}
	return false
}

// Probe reads codec and stream details with ffprobe
func (a *Audio) Probe(ctx context.Context, audioFile string) (*AudioInfo, error) {
	output, err := a.cmdRunner.Run(ctx, FFprobeCommand,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		audioFile)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			BitRate  string `json:"bit_rate"`
			Size     string `json:"size"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := &AudioInfo{}
	info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	info.Bitrate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)
	info.Size, _ = strconv.ParseInt(probe.Format.Size, 10, 64)
	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.Codec = s.CodecName
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		info.Channels = s.Channels
		break
	}

	if info.Codec == "" {
		return nil, fmt.Errorf("no audio stream in %s", audioFile)
	}
	return info, nil
}

// Duration returns the audio file duration in seconds
func (a *Audio) Duration(ctx context.Context, audioFile string) (float64, error) {
	output, err := a.cmdRunner.Run(ctx, FFprobeCommand,
		"-i", audioFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")

	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}

	return duration, nil
}

// PartsFor returns how many equal parts keep each one under limit
func PartsFor(size, limit int64) int {
	if size <= limit || limit <= 0 {
		return 1
	}
	return int(math.Ceil(float64(size) / float64(limit)))
}

// Split divides an audio file into numParts files of equal duration in outDir
func (a *Audio) Split(ctx context.Context, audioFile, outDir string, numParts int) ([]string, error) {
	if numParts < 1 {
		return nil, fmt.Errorf("invalid number of parts: %d", numParts)
	}
	if err := EnsureDirs(outDir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	duration, err := a.Duration(ctx, audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio duration: %w", err)
	}

	partDuration := int(math.Ceil(duration / float64(numParts)))
	parts := make([]string, 0, numParts)

	ext := filepath.Ext(audioFile)
	base := strings.TrimSuffix(filepath.Base(audioFile), ext)
	for i := range numParts {
		start := i * partDuration
		output := filepath.Join(outDir, fmt.Sprintf("%s_part_%d%s", base, i+1, ext))

		if err := a.Chunk(ctx, audioFile, start, partDuration, output); err != nil {
			cleanupFiles(parts...)
			return nil, fmt.Errorf("creating part %d: %w", i+1, err)
		}
		parts = append(parts, output)
	}

	return parts, nil
}

// Chunk extracts a segment from an audio file
func (a *Audio) Chunk(ctx context.Context, audioFile string, start, duration int, output string) error {
	cmdOutput, err := a.cmdRunner.Run(ctx, FFmpegCommand,
		"-v", "quiet",
		"-i", audioFile,
		"-ss", strconv.Itoa(start),
		"-t", strconv.Itoa(duration),
		"-c:a", "copy",
		"-y", output)

	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(cmdOutput))
	}
	return nil
}

// FormatFromPath guesses the asset format from the file extension
func FormatFromPath(path string) AudioFormat {
	return AudioFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}
