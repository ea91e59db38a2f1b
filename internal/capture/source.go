package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/zombor/card-reader/internal/card"
)

// Frame is one captured camera image
type Frame struct {
	Seq         uint64
	Name        string
	Data        []byte
	ContentType string
}

// Source produces camera frames. Start reports camera failures as
// *card.CameraInitializationError or *card.CameraPermissionError. The frame
// channel is closed when the source runs out or ctx is done.
type Source interface {
	Start(ctx context.Context) (<-chan Frame, error)
}

// DirectorySource replays the images in a directory as camera frames, in name order
type DirectorySource struct {
	dir      string
	interval time.Duration
	loop     bool
}

// DirectoryOption configures a DirectorySource
type DirectoryOption func(*DirectorySource)

// WithInterval delays each frame by d, mimicking a camera frame rate
func WithInterval(d time.Duration) DirectoryOption {
	return func(s *DirectorySource) {
		s.interval = d
	}
}

// WithLoop replays the directory until the context is done
func WithLoop(loop bool) DirectoryOption {
	return func(s *DirectorySource) {
		s.loop = loop
	}
}

// NewDirectorySource creates a source over the frames in dir
func NewDirectorySource(dir string, opts ...DirectoryOption) *DirectorySource {
	s := &DirectorySource{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start lists the frames and begins delivering them
func (s *DirectorySource) Start(ctx context.Context) (<-chan Frame, error) {
	paths, err := s.framePaths()
	if err != nil {
		return nil, err
	}

	frames := make(chan Frame)
	go func() {
		defer close(frames)

		var ticker *time.Ticker
		if s.interval > 0 {
			ticker = time.NewTicker(s.interval)
			defer ticker.Stop()
		}

		var seq uint64
		for {
			delivered := 0
			for _, path := range paths {
				if ticker != nil {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}

				data, err := os.ReadFile(path)
				if err != nil {
					slog.Warn("Skipping unreadable frame", "path", path, "error", err)
					continue
				}

				seq++
				frame := Frame{
					Seq:         seq,
					Name:        filepath.Base(path),
					Data:        data,
					ContentType: mimetype.Detect(data).String(),
				}
				select {
				case <-ctx.Done():
					return
				case frames <- frame:
					delivered++
				}
			}
			if !s.loop || delivered == 0 {
				return
			}
		}
	}()

	return frames, nil
}

// framePaths returns the image files in the directory sorted by name
func (s *DirectorySource) framePaths() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, cameraError(err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, cameraError(err)
		}
		if !isFrameType(mtype.String()) {
			continue
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, &card.CameraInitializationError{Err: fmt.Errorf("no frames in %s", s.dir)}
	}

	sort.Strings(paths)
	return paths, nil
}

func isFrameType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

// cameraError maps a filesystem failure to the camera failure it stands for
func cameraError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return &card.CameraPermissionError{Status: card.StatusDenied}
	}
	return &card.CameraInitializationError{Err: err}
}
