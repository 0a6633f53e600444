// Package preprocess turns an uploaded template into one whose placeholders carry
// {{KIND_SLIDE_N}} tokens, either in process or through an external script.
package preprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/deckfill/internal/pptx"
	"github.com/hyperjump/deckfill/internal/slides"
)

const (
	ModeNative = "native"
	ModePython = "python"
)

const defaultTimeout = 60 * time.Second

// ErrInterpreterNotFound is returned when no python interpreter can be located.
var ErrInterpreterNotFound = errors.New("python interpreter not found")

// Result describes a preprocessed template.
type Result struct {
	// Placeholders lists every slide in presentation order with its tokens.
	Placeholders slides.PlaceholderMap
	// Originals maps a token to the template text it replaced, when known.
	Originals map[string]string
}

// Preprocessor rewrites the template at inPath into outPath.
type Preprocessor interface {
	Preprocess(ctx context.Context, inPath, outPath string) (*Result, error)
}

// Option configures a preprocessor.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	timeout time.Duration
}

// WithLogger sets the logger used to report preprocessing results.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout bounds a script run. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Native preprocesses templates in process with pptx.Preprocess.
type Native struct {
	logger *zap.Logger
}

// NewNative creates a Native preprocessor.
func NewNative(opts ...Option) *Native {
	o := applyOptions(opts)
	return &Native{logger: o.logger}
}

// Preprocess implements Preprocessor.
func (n *Native) Preprocess(ctx context.Context, inPath, outPath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	res, err := pptx.Preprocess(content)
	if err != nil {
		return nil, err
	}
	if err := writeFile(outPath, res.Content); err != nil {
		return nil, err
	}
	for _, sp := range res.Placeholders {
		for _, token := range sp.Tokens {
			n.logger.Debug("placeholder assigned",
				zap.String("slide", sp.Key),
				zap.String("token", token),
				zap.String("original", res.Renamed[token]))
		}
	}
	n.logger.Info("template preprocessed",
		zap.String("output", outPath),
		zap.Int("slides", len(res.Placeholders)),
		zap.Int("placeholders", res.Placeholders.Count()))
	return &Result{Placeholders: res.Placeholders, Originals: res.Renamed}, nil
}

// Subprocess runs an external script as `<interpreter> <script> <in> <out>` and then scans
// the script's output for tokens. The replaced template text is not known in this mode.
type Subprocess struct {
	interpreter string
	script      string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewSubprocess creates a Subprocess preprocessor. An empty interpreter is resolved on
// first use, preferring python3 over python.
func NewSubprocess(interpreter, script string, opts ...Option) *Subprocess {
	o := applyOptions(opts)
	return &Subprocess{
		interpreter: interpreter,
		script:      script,
		timeout:     o.timeout,
		logger:      o.logger,
	}
}

// Preprocess implements Preprocessor.
func (s *Subprocess) Preprocess(ctx context.Context, inPath, outPath string) (*Result, error) {
	interpreter, err := s.findInterpreter()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.script); err != nil {
		return nil, fmt.Errorf("preprocess script: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, interpreter, s.script, inPath, outPath) // #nosec G204 - interpreter and script come from config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	start := time.Now()
	err = cmd.Run()
	s.logger.Debug("preprocess script finished",
		zap.String("script", s.script),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("stdout", strings.TrimSpace(stdout.String())),
		zap.String("stderr", strings.TrimSpace(stderr.String())))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("preprocess script timed out after %s", s.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("preprocess script: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("preprocess script: %w", err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read preprocessed template: %w", err)
	}
	placeholders, err := pptx.Placeholders(content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("template preprocessed",
		zap.String("output", outPath),
		zap.String("script", s.script),
		zap.Int("slides", len(placeholders)),
		zap.Int("placeholders", placeholders.Count()))
	return &Result{Placeholders: placeholders}, nil
}

func (s *Subprocess) findInterpreter() (string, error) {
	if s.interpreter != "" {
		path, err := exec.LookPath(s.interpreter)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInterpreterNotFound, s.interpreter)
		}
		return path, nil
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrInterpreterNotFound
}

// New returns the preprocessor for mode. An empty mode selects the native one.
func New(mode, interpreter, script string, opts ...Option) (Preprocessor, error) {
	switch strings.ToLower(mode) {
	case "", ModeNative:
		return NewNative(opts...), nil
	case ModePython:
		if script == "" {
			return nil, errors.New("python preprocess mode requires a script")
		}
		return NewSubprocess(interpreter, script, opts...), nil
	default:
		return nil, fmt.Errorf("unknown preprocess mode %q", mode)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write preprocessed template: %w", err)
	}
	return nil
}
