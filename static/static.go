// Package static holds the browser assets served by the molecule.
package static

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
)

// WidgetFile is the file name of the rendering widget.
const WidgetFile = "dora-metrics.js"

//go:embed dora-metrics.js
var files embed.FS

// Asset is an embedded file with a precomputed entity tag.
type Asset struct {
	Name        string
	ContentType string
	Body        []byte
	ETag        string
}

// Widget returns the rendering widget script.
func Widget() (Asset, error) {
	body, err := files.ReadFile(WidgetFile)
	if err != nil {
		return Asset{}, fmt.Errorf("read %s: %w", WidgetFile, err)
	}
	sum := sha256.Sum256(body)
	return Asset{
		Name:        WidgetFile,
		ContentType: "application/javascript; charset=utf-8",
		Body:        body,
		ETag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
	}, nil
}
