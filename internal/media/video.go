package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// FFmpegDemuxer implements normalize.AudioDemuxer by shelling out to
// ffmpeg. Videos are staged through temp files because ffmpeg wants paths.
type FFmpegDemuxer struct {
	binary string
}

// NewFFmpegDemuxer creates a demuxer. An empty binary path defaults to
// whatever "ffmpeg" resolves to on PATH.
func NewFFmpegDemuxer(binary string) *FFmpegDemuxer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegDemuxer{binary: binary}
}

// ExtractAudio pulls the audio track out of a video as 16kHz mono WAV,
// the format speech models prefer.
func (d *FFmpegDemuxer) ExtractAudio(ctx context.Context, video []byte, mimeType string) ([]byte, string, error) {
	dir, err := os.MkdirTemp("", "ledgerlens-video-")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	videoPath := filepath.Join(dir, "input"+videoExtensionFor(mimeType))
	audioPath := filepath.Join(dir, "audio.wav")

	if err := os.WriteFile(videoPath, video, 0600); err != nil {
		return nil, "", fmt.Errorf("failed to stage video: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.binary,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("ffmpeg failed: %w: %s", err, stderr.String())
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read extracted audio: %w", err)
	}

	return audio, "audio/wav", nil
}

func videoExtensionFor(mimeType string) string {
	switch mimeType {
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	default:
		return ".mp4"
	}
}
