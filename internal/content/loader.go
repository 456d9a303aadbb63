package content

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/example/dailylove/pkg/models"
	"gopkg.in/yaml.v3"
)

// bankFile is the on-disk YAML shape of a bank
type bankFile struct {
	Name  string               `yaml:"name"`
	Items []models.ContentItem `yaml:"items"`
}

// ParseBank decodes a YAML bank document
func ParseBank(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bank: %w", err)
	}
	return NewBank(f.Name, f.Items)
}

// LoadBank reads and decodes a YAML bank file from fsys
func LoadBank(fsys fs.FS, path string) (*Bank, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank %s: %w", path, err)
	}
	b, err := ParseBank(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// WriteBank encodes items as a YAML bank document
func WriteBank(w io.Writer, name string, items []models.ContentItem) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(bankFile{Name: name, Items: items}); err != nil {
		return fmt.Errorf("failed to write bank: %w", err)
	}
	return enc.Close()
}
