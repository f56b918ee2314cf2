// Package directory manages the homepage topic directory: categories of
// example queries kept index-aligned across the three interface languages.
package directory

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kalambet/ensiklopedia/internal/i18n"
)

// Category is one group of example topics. Icon is derived from the
// Indonesian category name and is identical across languages.
type Category struct {
	Category string   `json:"category"`
	Icon     string   `json:"icon"`
	Items    []string `json:"items"`
}

// Data holds the directory in every language. Category i and item j refer
// to the same topic in ID, AR and EN.
type Data struct {
	ID []Category `json:"id"`
	AR []Category `json:"ar"`
	EN []Category `json:"en"`
}

// Lang returns the categories for one language.
func (d Data) Lang(lang i18n.Lang) []Category {
	switch lang {
	case i18n.AR:
		return d.AR
	case i18n.EN:
		return d.EN
	default:
		return d.ID
	}
}

func (d *Data) lang(lang i18n.Lang) *[]Category {
	switch lang {
	case i18n.ID:
		return &d.ID
	case i18n.AR:
		return &d.AR
	case i18n.EN:
		return &d.EN
	}
	return nil
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	return Data{ID: cloneCategories(d.ID), AR: cloneCategories(d.AR), EN: cloneCategories(d.EN)}
}

func cloneCategories(cs []Category) []Category {
	if cs == nil {
		return nil
	}
	out := make([]Category, len(cs))
	for i, c := range cs {
		out[i] = Category{Category: c.Category, Icon: c.Icon, Items: append([]string(nil), c.Items...)}
		if c.Items != nil && out[i].Items == nil {
			out[i].Items = []string{}
		}
	}
	return out
}

// ErrMisaligned is returned by Validate when the languages disagree on shape.
var ErrMisaligned = errors.New("directory languages are not aligned")

// Validate checks that every language has the same number of categories,
// the same number of items per category, and the Indonesian icon.
func (d Data) Validate() error {
	if len(d.AR) != len(d.ID) || len(d.EN) != len(d.ID) {
		return fmt.Errorf("%w: %d/%d/%d categories", ErrMisaligned, len(d.ID), len(d.AR), len(d.EN))
	}
	for i, c := range d.ID {
		for _, other := range []Category{d.AR[i], d.EN[i]} {
			if len(other.Items) != len(c.Items) {
				return fmt.Errorf("%w: category %d has %d items in id but %d elsewhere", ErrMisaligned, i, len(c.Items), len(other.Items))
			}
			if other.Icon != c.Icon {
				return fmt.Errorf("%w: category %d icon %q differs from %q", ErrMisaligned, i, other.Icon, c.Icon)
			}
		}
	}
	return nil
}

// IsEmpty reports whether the directory has no categories at all.
func (d Data) IsEmpty() bool {
	return len(d.ID) == 0 && len(d.AR) == 0 && len(d.EN) == 0
}

//go:embed default.json
var defaultJSON []byte

// Default returns the built-in directory shipped with the application.
func Default() Data {
	var d Data
	if err := json.Unmarshal(defaultJSON, &d); err != nil {
		panic(fmt.Sprintf("directory: embedded default is invalid: %v", err))
	}
	return d
}
