package prompt

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CancelToken cancels the prompt it answers.
const CancelToken = "!cancel"

// Asked records one prompt a Script answered.
type Asked struct {
	Kind    string // "choose" or "input"
	Header  string
	Options []string
	Reply   string
}

// Script answers prompts from a fixed list of replies, in order. A Choose
// reply must be one of the offered options. Running out of replies cancels.
type Script struct {
	mu      sync.Mutex
	replies []string
	asked   []Asked
}

// NewScript returns a Script that answers with replies in order.
func NewScript(replies ...string) *Script {
	return &Script{replies: slices.Clone(replies)}
}

type scriptFile struct {
	Answers []string `yaml:"answers"`
}

// LoadScript reads replies from a YAML file with an "answers" list.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read script: %w", err)
	}
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("prompt: parse script %s: %w", path, err)
	}
	return NewScript(f.Answers...), nil
}

func (s *Script) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", ErrCancelled
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r == CancelToken {
		return "", ErrCancelled
	}
	return r, nil
}

func (s *Script) Choose(ctx context.Context, header string, options []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.next(ctx)
	if err != nil {
		return "", err
	}
	s.asked = append(s.asked, Asked{Kind: "choose", Header: header, Options: slices.Clone(options), Reply: r})
	if !slices.Contains(options, r) {
		return "", fmt.Errorf("prompt: %q is not one of [%s]", r, strings.Join(options, ", "))
	}
	return r, nil
}

func (s *Script) Input(ctx context.Context, header, _, initial string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.next(ctx)
	if err != nil {
		return "", err
	}
	if r == "" {
		r = initial
	}
	s.asked = append(s.asked, Asked{Kind: "input", Header: header, Reply: r})
	return r, nil
}

// Asked returns the prompts answered so far.
func (s *Script) Asked() []Asked {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.asked)
}

// Remaining returns how many replies are left.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
