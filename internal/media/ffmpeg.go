package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
)

// durationPattern matches ffmpeg's stderr banner, e.g.
// "Duration: 00:42:13.52, start: ...".
var durationPattern = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})\.(\d{2})`)

// FFmpeg shells out to the ffmpeg binary to transcode and probe MP3
// files.
type FFmpeg struct {
	Path string // executable; "ffmpeg" resolves via PATH
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

// Convert re-encodes inputPath to outputPath at the given bitrate in
// kbps, overwriting any previous rendition.
func (f *FFmpeg) Convert(ctx context.Context, inputPath, outputPath string, bitrateKbps int) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}
	cmd := exec.CommandContext(ctx, f.Path,
		"-i", inputPath,
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %dk: %w: %s", bitrateKbps, err, tail(stderr.Bytes(), 512))
	}
	return nil
}

// Probe returns the duration of an audio file in whole seconds,
// parsed from ffmpeg's stderr banner. ffmpeg exits non-zero when run
// without an output, so only the parse result matters here.
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (int, error) {
	cmd := exec.CommandContext(ctx, f.Path, "-i", inputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	m := durationPattern.FindSubmatch(stderr.Bytes())
	if m == nil {
		return 0, fmt.Errorf("no duration found for %s", inputPath)
	}
	hours, _ := strconv.Atoi(string(m[1]))
	minutes, _ := strconv.Atoi(string(m[2]))
	seconds, _ := strconv.Atoi(string(m[3]))
	return hours*3600 + minutes*60 + seconds, nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
