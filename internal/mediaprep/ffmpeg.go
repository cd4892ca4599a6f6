package mediaprep

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

type ffmpeg struct {
	ffmpegCmd string
	filePath  string
}

// NewFfmpeg wraps a video file for frame extraction.
func NewFfmpeg(videoPath string) ffmpeg {
	return ffmpeg{
		ffmpegCmd: "ffmpeg",
		filePath:  filepath.Clean(videoPath),
	}
}

// ExtractFrame pulls a single representative frame (one second in) as a
// JPEG and returns its bytes.
func (ff ffmpeg) ExtractFrame() ([]byte, error) {
	cmdPath, err := exec.LookPath(ff.ffmpegCmd)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}

	tmp, err := os.CreateTemp("", "swellcast_frame_*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create temp frame file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.Command(cmdPath, ff.extractFrameArgs(tmpPath)...)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extract frame: %w", err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted frame: %w", err)
	}
	return data, nil
}

func (f ffmpeg) extractFrameArgs(targetPath string) []string {
	return []string{
		"-y",
		"-ss", "00:00:01", // skip the usually-black first frame
		"-i", f.filePath,
		"-frames:v", "1", // single frame
		"-q:v", "2",
		targetPath,
	}
}

// VideoThumbnail extracts one frame from the video at path and compresses
// it under the same budget as a report image.
func VideoThumbnail(videoPath string, budget int) ([]byte, error) {
	frame, err := NewFfmpeg(videoPath).ExtractFrame()
	if err != nil {
		return nil, err
	}
	return CompressImage(frame, budget)
}
