package artifact

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/logging"
)

// ListingSuffix is appended to an image path to find its pre-computed
// content listing.
const ListingSuffix = ".lst"

// DefaultListCommand lists every file on an ISO image with its full path.
// "{path}" is replaced by the image path.
var DefaultListCommand = []string{"isoinfo", "-R", "-f", "-i", "{path}"}

// CommandRunner runs a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LocalSource reads the image directory and images on the local filesystem.
type LocalSource struct {
	// Command lists the files on an image; "{path}" is replaced by the image path
	Command []string

	// Run executes Command (default: os/exec)
	Run CommandRunner

	logger *zap.Logger
}

// NewLocalSource creates a local source using command to list image contents.
// An empty command uses DefaultListCommand.
func NewLocalSource(command []string) *LocalSource {
	if len(command) == 0 {
		command = DefaultListCommand
	}
	return &LocalSource{
		Command: command,
		Run:     execRunner,
		logger:  logging.Named("artifact.local"),
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ListDirectory returns the full paths of the directory entries, separated
// by spaces, in name order.
func (l *LocalSource) ListDirectory(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ClassifyFileError(dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	l.logger.Debug("Listed directory",
		zap.String("path", dir),
		zap.Int("entries", len(paths)),
	)
	return strings.Join(paths, " "), nil
}

// ReadContents returns the content listing of an image. A sidecar file
// "<image>.lst" is used when present; otherwise the listing command is run.
func (l *LocalSource) ReadContents(ctx context.Context, image string) (string, error) {
	if _, err := os.Stat(image); err != nil {
		return "", ClassifyFileError(image, err)
	}

	sidecar := image + ListingSuffix
	if data, err := os.ReadFile(sidecar); err == nil {
		l.logger.Debug("Using listing sidecar", zap.String("path", sidecar))
		return string(data), nil
	} else if !os.IsNotExist(err) {
		return "", ClassifyFileError(sidecar, err)
	}

	args := make([]string, 0, len(l.Command))
	for _, a := range l.Command {
		args = append(args, strings.ReplaceAll(a, "{path}", image))
	}
	if len(args) == 0 {
		return "", NewCommandError(image, nil, nil)
	}

	run := l.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, args[0], args[1:]...)
	if err != nil {
		return "", NewCommandError(image, out, err)
	}
	l.logger.Debug("Listed image contents",
		zap.String("path", image),
		zap.Int("bytes", len(out)),
	)
	return string(out), nil
}
