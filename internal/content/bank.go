// Package content holds the static, ordered catalogues that daily content is drawn from.
package content

import (
	"fmt"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
)

// Bank is an immutable, ordered, 1-indexed sequence of content items.
// Items that carry a category are also reachable through per-category sub-banks.
type Bank struct {
	name     string
	items    []models.ContentItem
	subBanks map[string]*Bank
	tags     []string
}

// NewBank validates items and builds a bank. Item IDs must run 1..N in order.
func NewBank(name string, items []models.ContentItem) (*Bank, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %q", apperr.ErrEmptyContentBank, name)
	}
	for i, item := range items {
		if item.ID != i+1 {
			return nil, apperr.Invalid("bank %q: item at position %d has id %d", name, i+1, item.ID)
		}
		if len(item.Body) == 0 {
			return nil, apperr.Invalid("bank %q: item %d has no body", name, item.ID)
		}
	}

	b := &Bank{
		name:     name,
		items:    append([]models.ContentItem(nil), items...),
		subBanks: make(map[string]*Bank),
	}
	for _, item := range b.items {
		if item.Category == "" {
			continue
		}
		sub, ok := b.subBanks[item.Category]
		if !ok {
			sub = &Bank{name: name + "/" + item.Category}
			b.subBanks[item.Category] = sub
			b.tags = append(b.tags, item.Category)
		}
		sub.items = append(sub.items, item)
	}
	return b, nil
}

// Name returns the bank's name
func (b *Bank) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Len returns the number of items N
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Get returns the item at a 1-based index
func (b *Bank) Get(index int) (models.ContentItem, error) {
	if b.Len() == 0 {
		return models.ContentItem{}, fmt.Errorf("%w: %q", apperr.ErrEmptyContentBank, b.Name())
	}
	if index < 1 || index > len(b.items) {
		return models.ContentItem{}, fmt.Errorf("%w: %d not in [1, %d]", apperr.ErrIndexOutOfRange, index, len(b.items))
	}
	return b.items[index-1], nil
}

// SubBank returns the items tagged with category, in bank order, or nil if there are none.
// Items keep their IDs from the parent bank.
func (b *Bank) SubBank(category string) *Bank {
	if b == nil {
		return nil
	}
	return b.subBanks[category]
}

// Tags returns the categories present in the bank, in order of first appearance
func (b *Bank) Tags() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.tags...)
}
