// Package storage provides temporary cloud storage adapters. The engine
// hands local files to a store and receives short-lived URLs that
// URL-consuming transformers can fetch; stored files are released again
// during cleanup. HTTPStore talks to a presign service; LocalStore keeps
// files in a directory for development and tests.
package storage

import (
	"fmt"
	"io"
	"os"
)

// copyFile copies src to dest, truncating any existing file.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dest, err)
	}

	return nil
}
