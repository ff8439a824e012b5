package stream

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Opener starts decoding source into s16le 48kHz stereo PCM. stop releases
// the decoder and is safe to call more than once.
type Opener func(source string) (pcm io.ReadCloser, stop func(), err error)

// FFmpeg returns an Opener that runs the ffmpeg binary at path.
func FFmpeg(path string) Opener {
	if path == "" {
		path = "ffmpeg"
	}
	return func(source string) (io.ReadCloser, func(), error) {
		cmd := exec.Command(path, ffmpegArgs(source)...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("start ffmpeg: %w", err)
		}

		var once sync.Once
		stop := func() {
			once.Do(func() {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
			})
		}
		return out, stop, nil
	}
}

func ffmpegArgs(source string) []string {
	var args []string
	if isRemote(source) {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	return append(args,
		"-i", source,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
