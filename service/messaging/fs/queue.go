package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"

	"github.com/gateflow/gateflow/internal/idgen"
	"github.com/gateflow/gateflow/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue.
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
)

// Message implements messaging.Message for the filesystem queue.
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack acknowledges that the message was processed successfully.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = time.Now()
	return m.queue.completeMessage(context.Background(), m)
}

// Nack indicates that the message processing failed.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = time.Now()
	return m.queue.failMessage(context.Background(), m)
}

// Config holds configuration for the filesystem queue.
type Config struct {
	BasePath   string        // Base directory for queue files
	MaxRetries int           // Maximum number of retry attempts
	RetryDelay time.Duration // Delay between retries
}

// DefaultConfig returns a default queue configuration.
func DefaultConfig() Config {
	return Config{
		BasePath:   "/tmp/gateflow/queue",
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Queue implements a filesystem-backed messaging.Queue.  Messages move
// between pending/processing/completed/failed/dlq directories so that a
// restarted consumer can pick up where it left off.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	completedDir  string
	failedDir     string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a new filesystem-based queue.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    path.Join(config.BasePath, "pending"),
		processingDir: path.Join(config.BasePath, "processing"),
		completedDir:  path.Join(config.BasePath, "completed"),
		failedDir:     path.Join(config.BasePath, "failed"),
		dlqDir:        path.Join(config.BasePath, "dlq"),
	}

	dirs := []string{
		q.pendingDir,
		q.processingDir,
		q.completedDir,
		q.failedDir,
		q.dlqDir,
	}
	ctx := context.Background()
	for _, dir := range dirs {
		exists, _ := fs.Exists(ctx, dir)
		if !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return q, nil
}

// Publish adds a new message to the queue.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		queue:     q,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	filePath := path.Join(q.pendingDir, q.filename(message.ID))
	return q.upload(ctx, filePath, data)
}

// Consume retrieves a single message.  Failed messages eligible for retry are
// served before fresh pending ones; nil is returned when the queue is empty.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	retry, err := q.checkFailedMessages(ctx)
	if err != nil {
		return nil, err
	}
	if retry != nil {
		return retry, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	pending := filterMessageFiles(objects)
	if len(pending) == 0 {
		return nil, nil
	}

	// Oldest first.
	obj := pending[0]
	message, err := q.readMessage(ctx, obj.URL())
	if err != nil {
		destURL := path.Join(q.failedDir, fmt.Sprintf("invalid-%s", obj.Name()))
		_ = q.fs.Move(ctx, obj.URL(), destURL)
		return nil, err
	}

	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q
	if err := q.moveMessage(ctx, message, obj, q.processingDir); err != nil {
		return nil, err
	}
	return message, nil
}

// checkFailedMessages looks for failed messages eligible for retry.
func (q *Queue[T]) checkFailedMessages(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.failedDir, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list failed messages: %w", err)
	}
	failed := filterMessageFiles(objects)
	if len(failed) == 0 {
		return nil, nil
	}

	obj := failed[0]
	message, err := q.readMessage(ctx, obj.URL())
	if err != nil {
		destURL := path.Join(q.dlqDir, fmt.Sprintf("invalid-%s", obj.Name()))
		_ = q.fs.Move(ctx, obj.URL(), destURL)
		return nil, err
	}

	if message.Retries > q.config.MaxRetries {
		destURL := path.Join(q.dlqDir, obj.Name())
		if err := q.fs.Move(ctx, obj.URL(), destURL); err != nil {
			return nil, fmt.Errorf("failed to move message to DLQ: %w", err)
		}
		return nil, nil
	}

	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q
	if err := q.moveMessage(ctx, message, obj, q.processingDir); err != nil {
		return nil, err
	}
	return message, nil
}

// moveMessage re-serialises the message into destDir and removes the source
// object; the write happens first so a crash never loses the message.
func (q *Queue[T]) moveMessage(ctx context.Context, m *Message[T], src storage.Object, destDir string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := q.upload(ctx, path.Join(destDir, src.Name()), data); err != nil {
		return fmt.Errorf("failed to move message to %s: %w", destDir, err)
	}
	if err := q.fs.Delete(ctx, src.URL()); err != nil {
		return fmt.Errorf("failed to delete source message: %w", err)
	}
	return nil
}

// completeMessage moves a message to the completed directory.
func (q *Queue[T]) completeMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal completed message: %w", err)
	}
	filename := q.filename(m.ID)
	if err := q.upload(ctx, path.Join(q.completedDir, filename), data); err != nil {
		return fmt.Errorf("failed to write message to completed directory: %w", err)
	}
	return q.removeProcessing(ctx, filename)
}

// failMessage parks a failed message for retry or moves it to the DLQ.
func (q *Queue[T]) failMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal failed message: %w", err)
	}
	filename := q.filename(m.ID)
	destDir := q.failedDir
	if m.Retries > q.config.MaxRetries {
		destDir = q.dlqDir
	}
	if err := q.upload(ctx, path.Join(destDir, filename), data); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", destDir, err)
	}
	return q.removeProcessing(ctx, filename)
}

func (q *Queue[T]) removeProcessing(ctx context.Context, filename string) error {
	processingPath := path.Join(q.processingDir, filename)
	if exists, _ := q.fs.Exists(ctx, processingPath); exists {
		if err := q.fs.Delete(ctx, processingPath); err != nil {
			return fmt.Errorf("failed to delete message from processing directory: %w", err)
		}
	}
	return nil
}

func (q *Queue[T]) filename(id string) string {
	return fmt.Sprintf("%s.json", id)
}

func (q *Queue[T]) upload(ctx context.Context, path string, data []byte) error {
	return q.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

func (q *Queue[T]) readMessage(ctx context.Context, url string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", url, err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", url, err)
	}
	return &message, nil
}

func filterMessageFiles(objects []storage.Object) []storage.Object {
	var out []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			out = append(out, obj)
		}
	}
	return out
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
