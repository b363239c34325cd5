package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/sitegen"
)

var _ sitegen.MemoryStore = (*MemoryStore)(nil)

// envelope is the v1 format of a persisted conversation.
type envelope struct {
	Version      int          `json:"version"`
	ID           string       `json:"id"`
	SystemPrompt string       `json:"system_prompt"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Messages     []messageDTO `json:"messages"`
}

// MarshalConversation serializes a Conversation in v1 envelope format.
func MarshalConversation(c sitegen.Conversation) ([]byte, error) {
	env := envelope{
		Version:      1,
		ID:           c.ID,
		SystemPrompt: c.SystemPrompt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Messages:     make([]messageDTO, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		dto, err := marshalMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		env.Messages[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalConversation deserializes a Conversation from v1 envelope format.
func UnmarshalConversation(data []byte) (sitegen.Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return sitegen.Conversation{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return sitegen.Conversation{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]sitegen.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msg, err := unmarshalMessage(dto)
		if err != nil {
			return sitegen.Conversation{}, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	return sitegen.Conversation{
		ID:           env.ID,
		SystemPrompt: env.SystemPrompt,
		CreatedAt:    env.CreatedAt,
		UpdatedAt:    env.UpdatedAt,
		Messages:     msgs,
	}, nil
}

// MemoryStore keeps one JSON file per key under dir.
type MemoryStore struct {
	dir string
}

// NewMemoryStore creates a MemoryStore rooted at dir.
func NewMemoryStore(dir string) *MemoryStore {
	return &MemoryStore{dir: dir}
}

// Load returns the stored conversation for key, or a fresh one with
// ID = key when nothing was saved yet.
func (s *MemoryStore) Load(_ context.Context, key string) (sitegen.Conversation, error) {
	path, err := s.path(key)
	if err != nil {
		return sitegen.Conversation{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return sitegen.Conversation{ID: key}, nil
	}
	if err != nil {
		return sitegen.Conversation{}, fmt.Errorf("read %s: %w: %w", path, sitegen.ErrIO, err)
	}
	return UnmarshalConversation(data)
}

// Save writes the conversation atomically.
func (s *MemoryStore) Save(_ context.Context, key string, c sitegen.Conversation) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := MarshalConversation(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create directories: %w: %w", sitegen.ErrIO, err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w: %w", sitegen.ErrIO, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w: %w", sitegen.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w: %w", sitegen.ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w: %w", sitegen.ErrIO, err)
	}
	return nil
}

func (s *MemoryStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid memory key %q: %w", key, sitegen.ErrValidation)
	}
	return filepath.Join(s.dir, key+".json"), nil
}
