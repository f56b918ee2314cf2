package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kalambet/ensiklopedia/internal/i18n"
)

var (
	// ErrIndexOutOfRange is returned for a category or item index that does
	// not exist. The buffer is left untouched.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyName is returned when a new category name is blank.
	ErrEmptyName = errors.New("category name is empty")
)

// Saver persists a directory.
type Saver interface {
	SaveDirectory(ctx context.Context, d Data) error
}

// Editor is an edit buffer over a directory. Every mutation applies to all
// three languages at once so the arrays stay index-aligned, and each one is
// atomic with respect to the others.
type Editor struct {
	mu    sync.Mutex
	data  Data
	dirty bool
	rev   int
}

// NewEditor starts an edit session on a deep copy of d.
func NewEditor(d Data) *Editor {
	return &Editor{data: d.Clone()}
}

// Data returns a deep copy of the current buffer.
func (e *Editor) Data() Data {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// Dirty reports whether the buffer has unsaved changes.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// RenameCategory sets the category name in one language. Renaming the
// Indonesian category also re-derives the icon in every language.
func (e *Editor) RenameCategory(ci int, lang i18n.Lang, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cats := e.data.lang(lang)
	if cats == nil {
		return fmt.Errorf("unsupported language %q", lang)
	}
	if err := e.checkCategory(ci); err != nil {
		return err
	}
	(*cats)[ci].Category = name
	if lang == i18n.ID {
		e.data.ID[ci].Icon = name
		e.data.AR[ci].Icon = name
		e.data.EN[ci].Icon = name
	}
	e.touch()
	return nil
}

// RenameItem sets the text of one item in one language.
func (e *Editor) RenameItem(ci, ii int, lang i18n.Lang, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cats := e.data.lang(lang)
	if cats == nil {
		return fmt.Errorf("unsupported language %q", lang)
	}
	if err := e.checkItem(ci, ii); err != nil {
		return err
	}
	(*cats)[ci].Items[ii] = value
	e.touch()
	return nil
}

// AddCategory appends a category named idName in Indonesian and empty in
// the other languages. All three share the icon idName.
func (e *Editor) AddCategory(idName string) error {
	if strings.TrimSpace(idName) == "" {
		return ErrEmptyName
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.data.ID = append(e.data.ID, Category{Category: idName, Icon: idName, Items: []string{}})
	e.data.AR = append(e.data.AR, Category{Icon: idName, Items: []string{}})
	e.data.EN = append(e.data.EN, Category{Icon: idName, Items: []string{}})
	e.touch()
	return nil
}

// RemoveCategory deletes category ci in every language.
func (e *Editor) RemoveCategory(ci int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkCategory(ci); err != nil {
		return err
	}
	for _, lang := range i18n.All {
		cats := e.data.lang(lang)
		*cats = append((*cats)[:ci:ci], (*cats)[ci+1:]...)
	}
	e.touch()
	return nil
}

// AddItem appends an empty item to category ci in every language.
func (e *Editor) AddItem(ci int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkCategory(ci); err != nil {
		return err
	}
	for _, lang := range i18n.All {
		cats := e.data.lang(lang)
		(*cats)[ci].Items = append((*cats)[ci].Items, "")
	}
	e.touch()
	return nil
}

// RemoveItem deletes item ii of category ci in every language.
func (e *Editor) RemoveItem(ci, ii int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkItem(ci, ii); err != nil {
		return err
	}
	for _, lang := range i18n.All {
		cats := e.data.lang(lang)
		items := (*cats)[ci].Items
		(*cats)[ci].Items = append(items[:ii:ii], items[ii+1:]...)
	}
	e.touch()
	return nil
}

// Save hands a copy of the buffer to s. On failure the buffer and the
// dirty flag are kept so the caller can retry. Edits made while the save
// was in flight keep the buffer dirty.
func (e *Editor) Save(ctx context.Context, s Saver) error {
	e.mu.Lock()
	snapshot, rev := e.data.Clone(), e.rev
	e.mu.Unlock()

	if err := s.SaveDirectory(ctx, snapshot); err != nil {
		return fmt.Errorf("saving directory: %w", err)
	}
	e.mu.Lock()
	if e.rev == rev {
		e.dirty = false
	}
	e.mu.Unlock()
	return nil
}

func (e *Editor) touch() {
	e.dirty = true
	e.rev++
}

func (e *Editor) checkCategory(ci int) error {
	if ci < 0 || ci >= len(e.data.ID) || ci >= len(e.data.AR) || ci >= len(e.data.EN) {
		return fmt.Errorf("category %d: %w", ci, ErrIndexOutOfRange)
	}
	return nil
}

func (e *Editor) checkItem(ci, ii int) error {
	if err := e.checkCategory(ci); err != nil {
		return err
	}
	for _, lang := range i18n.All {
		if ii < 0 || ii >= len((*e.data.lang(lang))[ci].Items) {
			return fmt.Errorf("category %d item %d: %w", ci, ii, ErrIndexOutOfRange)
		}
	}
	return nil
}
