// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package bootstrap

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Template placeholders substituted by Render
const (
	PlaceholderServerIP   = "{SERVER_IP}"
	PlaceholderServerPort = "{SERVER_PORT}"
)

//go:embed plot.urscript
var defaultTemplate string

// DefaultTemplate returns the built-in URScript plot program
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads a URScript template from disk. An empty path returns
// the built-in template.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script template: %w", err)
	}

	tmpl := string(data)
	if !strings.Contains(tmpl, PlaceholderServerIP) || !strings.Contains(tmpl, PlaceholderServerPort) {
		return "", fmt.Errorf("script template %s must contain %s and %s", path, PlaceholderServerIP, PlaceholderServerPort)
	}
	return tmpl, nil
}

// Render fills the server address into a template
func Render(tmpl string, serverIP string, serverPort int) string {
	r := strings.NewReplacer(
		PlaceholderServerIP, serverIP,
		PlaceholderServerPort, strconv.Itoa(serverPort),
	)
	return r.Replace(tmpl)
}
