// Package file provides file-based configuration adapters.
//
// Adapters:
//   - ConfigStore: optional TOML tuning file (openpdpa.toml)
//   - PromptStore: user-editable moderation and generation prompts
package file
