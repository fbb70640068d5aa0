// Package export serializes dependency graphs for external tooling.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// Document is the export envelope around a normalized graph.
type Document struct {
	Root      string          `json:"root"`
	Generated string          `json:"generated"`
	Systems   []buildsys.Kind `json:"systems"`
	Graph     *buildsys.Graph `json:"graph"`
}

// Options controls an export.
type Options struct {
	// Gzip compresses the output. Writing to a path ending in .gz enables
	// it implicitly.
	Gzip bool
	// Compact drops indentation.
	Compact bool
}

// Exporter writes dependency graphs as JSON documents.
type Exporter struct {
	logger *logging.Logger
}

// NewExporter creates an Exporter.
func NewExporter(logger *logging.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Marshal renders a graph into an export document. The graph is normalized
// first so identical analyses export byte-identical documents.
func (e *Exporter) Marshal(root string, graph *buildsys.Graph, opts Options) ([]byte, error) {
	graph.Normalize()
	doc := Document{
		Root:      root,
		Generated: time.Now().UTC().Format(time.RFC3339),
		Systems:   graph.Systems,
		Graph:     graph,
	}

	var data []byte
	var err error
	if opts.Compact {
		data, err = json.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode export document: %w", err)
	}
	if !opts.Compact {
		data = append(data, '\n')
	}

	if opts.Gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("failed to compress export: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress export: %w", err)
		}
		data = buf.Bytes()
	}
	return data, nil
}

// WriteFile exports a graph to path. A .gz extension enables compression.
func (e *Exporter) WriteFile(path, root string, graph *buildsys.Graph, opts Options) error {
	if strings.HasSuffix(path, ".gz") {
		opts.Gzip = true
	}
	data, err := e.Marshal(root, graph, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	e.logger.Info("Graph exported", map[string]interface{}{
		"path":  path,
		"bytes": len(data),
		"gzip":  opts.Gzip,
	})
	return nil
}

// ReadDocument loads an exported document, transparently decompressing
// gzip input.
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip export: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("failed to decompress export: %w", err)
		}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed export document: %w", err)
	}
	return &doc, nil
}
