package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveDebounce updates the debounce section in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveDebounce(configPath string, d DebounceConfig) error {
	// Read existing file content
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	debounceNode := buildDebounceNode(d)

	// Update or create the debounce section
	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "debounce"},
						debounceNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return fmt.Errorf("parsing config: top level is not a mapping")
		}
		found := false
		for i := 0; i < len(root.Content)-1; i += 2 {
			if root.Content[i].Value == "debounce" {
				// Keep the comments attached to the old section
				debounceNode.HeadComment = root.Content[i+1].HeadComment
				root.Content[i+1] = debounceNode
				found = true
				break
			}
		}
		if !found {
			root.Content = append(root.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "debounce"},
				debounceNode,
			)
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// buildDebounceNode creates a yaml.Node for the debounce mapping.
// Durations are written in Go duration syntax so viper can decode them.
func buildDebounceNode(d DebounceConfig) *yaml.Node {
	pair := func(key, value, tag string) []*yaml.Node {
		return []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: key},
			{Kind: yaml.ScalarNode, Value: value, Tag: tag},
		}
	}

	disabled := "false"
	if d.Disabled {
		disabled = "true"
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	node.Content = append(node.Content, pair("disabled", disabled, "!!bool")...)
	node.Content = append(node.Content, pair("username", d.Username.String(), "!!str")...)
	node.Content = append(node.Content, pair("password_empty", d.PasswordEmpty.String(), "!!str")...)
	node.Content = append(node.Content, pair("password_equality", d.PasswordEquality.String(), "!!str")...)
	node.Content = append(node.Content, pair("strength", d.Strength.String(), "!!str")...)
	return node
}

// writeAtomic writes data to a temp file next to path, then renames it.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".regform.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
