package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to built-in defaults.
//
// The store uses lazy initialisation: files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains the built-in prompts.
// They are used when user files don't exist and as the initial content for new files.
var defaultPrompts = map[string]string{
	driven.PromptModeration: domain.DefaultModerationPrompt,
	driven.PromptGeneration: domain.DefaultGenerationPrompt,
}

// requiredPlaceholders lists the markers a customised prompt must keep.
// The moderation reply is matched against the allow marker, so the
// classifier instruction has to mention it.
var requiredPlaceholders = map[string][]string{
	driven.PromptModeration: {domain.ModerationAllowMarker},
	driven.PromptGeneration: {domain.PlaceholderContext},
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.openpdpa/prompts/.
//
// The constructor does not perform any I/O; directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".openpdpa", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A customised file that is empty or lost a required placeholder is ignored
// in favour of the built-in default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err == nil {
		err = checkPlaceholders(name, prompt)
	}
	if err != nil {
		defaultPrompt, ok := defaultPrompts[name]
		if !ok {
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		logger.Warn("prompts: using built-in %s prompt: %v", name, err)
		prompt = defaultPrompt
	}

	// Double-check so concurrent loads agree on one value.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := s.path(name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%s is empty", s.path(name))
	}
	return prompt, nil
}

func checkPlaceholders(name, prompt string) error {
	for _, placeholder := range requiredPlaceholders[name] {
		if !strings.Contains(prompt, placeholder) {
			return fmt.Errorf("%s prompt is missing %s", name, placeholder)
		}
	}
	return nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# OpenPDPA Prompts

This directory contains the system prompts used when answering questions.

## Files

- ` + "`moderation.txt`" + ` - Classifier instruction. It must mention ✅, the reply that allows a question.
- ` + "`generation.txt`" + ` - Answer instruction for the assistant.

## Placeholders

` + "`generation.txt`" + ` supports:
- ` + "`{assistant_name}`" + ` - The configured assistant name
- ` + "`{context}`" + ` - Retrieved PDPA passages (required)

A prompt that is empty or lost a required placeholder is ignored and the
built-in default is used instead. Changes take effect on the next command.
`
	return os.WriteFile(path, []byte(content), 0600)
}
