// Package clipboard provides utilities for working with the system clipboard
package clipboard

import (
	"github.com/atotto/clipboard"
)

// SetText puts text into the system clipboard
func SetText(text string) error {
	return clipboard.WriteAll(text)
}

// GetText retrieves text from the system clipboard
func GetText() (string, error) {
	return clipboard.ReadAll()
}

// System is the real clipboard behind the package functions, in a form that
// satisfies consumer interfaces.
type System struct{}

func (System) SetText(text string) error { return SetText(text) }

func (System) GetText() (string, error) { return GetText() }
