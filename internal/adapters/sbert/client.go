package sbert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
)

// ErrWorkerClosed is returned once the worker process has exited or was closed
var ErrWorkerClosed = errors.New("embedding worker is not running")

// Options configures the worker process
type Options struct {
	Python         string
	Model          string
	CacheDir       string
	Device         string
	BatchSize      int
	StartupTimeout time.Duration
}

type workerConfig struct {
	ModelName   string `json:"model_name"`
	CacheFolder string `json:"cache_folder"`
	Device      string `json:"device"`
	BatchSize   int    `json:"batch_size"`
}

type readyMessage struct {
	Status       string `json:"status"`
	EmbeddingDim int    `json:"embedding_dim"`
	Error        string `json:"error,omitempty"`
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Client is an EmbeddingProvider backed by a sentence-transformers worker process.
// Requests are serialized; the worker handles one batch at a time.
type Client struct {
	model     string
	dimension int
	logger    *zap.Logger

	mu      sync.Mutex
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	closed  bool
}

// NewClient starts the worker, loads the model, and waits for it to report ready
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 5 * time.Minute
	}

	script, err := extractScript(opts.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to extract worker script: %w", err)
	}

	cmd := exec.Command(opts.Python, script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start worker: %w", err)
	}

	c := &Client{
		model:   opts.Model,
		logger:  logger,
		process: cmd,
		stdin:   stdin,
		stdout:  bufio.NewReaderSize(stdout, 1<<20),
	}

	if err := c.send(workerConfig{
		ModelName:   opts.Model,
		CacheFolder: opts.CacheDir,
		Device:      opts.Device,
		BatchSize:   opts.BatchSize,
	}); err != nil {
		c.kill()
		return nil, fmt.Errorf("send config: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
	defer cancel()

	var ready readyMessage
	if err := c.receive(startCtx, &ready); err != nil {
		c.kill()
		return nil, fmt.Errorf("waiting for worker: %w", err)
	}
	if ready.Status != "ready" {
		c.kill()
		return nil, fmt.Errorf("model %s failed to load: %s", opts.Model, ready.Error)
	}

	c.dimension = ready.EmbeddingDim
	logger.Debug("Embedding worker ready",
		zap.String("model", opts.Model),
		zap.Int("embedding_dim", ready.EmbeddingDim),
		zap.Int("pid", cmd.Process.Pid))

	return c, nil
}

// Name returns the model name
func (c *Client) Name() string {
	return c.model
}

// Dimension returns the vector length reported by the worker
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed encodes texts in one worker round trip
func (c *Client) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.send(embedRequest{Texts: texts}); err != nil {
		c.kill()
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp embedResponse
	if err := c.receive(ctx, &resp); err != nil {
		// the stream is out of sync once a response is abandoned
		c.kill()
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("worker error: %s", resp.Error)
	}

	out := make([]core.Embedding, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		out[i] = core.Embedding(v)
	}
	return out, nil
}

// Close stops the worker process
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- c.process.Wait() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.process.Process.Kill()
		<-done
	}
	return nil
}

func (c *Client) send(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	payload = append(payload, '\n')
	_, err = c.stdin.Write(payload)
	return err
}

func (c *Client) receive(ctx context.Context, v interface{}) error {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := c.stdout.ReadBytes('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return ErrWorkerClosed
			}
			return fmt.Errorf("read response: %w", r.err)
		}
		if err := json.Unmarshal(bytes.TrimSpace(r.line), v); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	}
}

// kill terminates the worker after a protocol failure
func (c *Client) kill() {
	c.closed = true
	c.stdin.Close()
	if c.process.Process != nil {
		c.process.Process.Kill()
		go c.process.Wait()
	}
	c.logger.Warn("Embedding worker terminated", zap.String("model", c.model))
}

func extractScript(cacheDir string) (string, error) {
	dir := filepath.Join(cacheDir, workerDirName)
	if cacheDir == "" {
		dir = filepath.Join(os.TempDir(), "mail-lens", workerDirName)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, workerScriptName)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == embeddedWorkerScript {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(embeddedWorkerScript), 0755); err != nil {
		return "", err
	}
	return path, nil
}
