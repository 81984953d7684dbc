// Package clipboard wraps system clipboard access for the copy-last
// action. Keystroke delivery lives in typist; this is read/write only.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
