package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/atlas/internal/capability"
	"github.com/kokistudios/atlas/internal/record"
	"github.com/kokistudios/atlas/internal/source"
	"github.com/kokistudios/atlas/internal/store"
)

const (
	// Ext is the bundle file extension.
	Ext = ".atlas"

	manifestName     = "manifest.yaml"
	recordsName      = "records.json"
	capabilitiesName = "capabilities.json"
)

// Manifest describes the contents of a .atlas bundle.
type Manifest struct {
	Version      string        `yaml:"version"`
	ExportedAt   time.Time     `yaml:"exported_at"`
	Sources      SourceOrigins `yaml:"sources"`
	Records      int           `yaml:"records"`
	Capabilities int           `yaml:"capabilities"`
	Files        []string      `yaml:"files"`
}

// SourceOrigins records where the bundled data was fetched from.
type SourceOrigins struct {
	Records      string `yaml:"records"`
	Capabilities string `yaml:"capabilities"`
}

// Export snapshots both data sources into a .atlas bundle.
// Remote sources are fetched, so the bundle works offline. Both documents
// must parse; a bundle never carries data the catalog would reject.
func Export(ctx context.Context, st *store.Store, fetcher *source.Fetcher, outputPath string) (string, *Manifest, error) {
	recLoc, capLoc := st.RecordsLocation(), st.CapabilitiesLocation()

	recData, err := fetcher.Fetch(ctx, "records", recLoc)
	if err != nil {
		return "", nil, err
	}
	recs, err := record.Parse(recData)
	if err != nil {
		return "", nil, source.Wrap("records", recLoc, source.Malformed, err)
	}

	capData, err := fetcher.Fetch(ctx, "capabilities", capLoc)
	if err != nil {
		return "", nil, err
	}
	caps, err := capability.ParseTaxonomy(capData)
	if err != nil {
		return "", nil, source.Wrap("capabilities", capLoc, source.Malformed, err)
	}

	outputPath = bundlePath(outputPath, time.Now())

	manifest := &Manifest{
		Version:      "1",
		ExportedAt:   time.Now().UTC(),
		Sources:      SourceOrigins{Records: st.Config.Sources.Records, Capabilities: st.Config.Sources.Capabilities},
		Records:      len(recs),
		Capabilities: len(caps),
		Files:        []string{recordsName, capabilitiesName},
	}
	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	entries := []struct {
		name string
		data []byte
	}{
		{manifestName, manifestData},
		{recordsName, recData},
		{capabilitiesName, capData},
	}
	for _, e := range entries {
		header := &tar.Header{
			Name:    e.name,
			Size:    int64(len(e.data)),
			Mode:    0644,
			ModTime: manifest.ExportedAt,
		}
		if err := tw.WriteHeader(header); err != nil {
			return "", nil, fmt.Errorf("failed to write tar header: %w", err)
		}
		if _, err := tw.Write(e.data); err != nil {
			return "", nil, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish gzip: %w", err)
	}

	if err := writeFile(outputPath, buf.Bytes()); err != nil {
		return "", nil, err
	}
	return outputPath, manifest, nil
}

// bundlePath resolves the output path: empty means a dated file in the
// working directory, a directory gets the dated name appended.
func bundlePath(outputPath string, now time.Time) string {
	name := "atlas-" + now.Format("20060102-150405") + Ext
	if outputPath == "" {
		return name
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		return filepath.Join(outputPath, name)
	}
	if !strings.HasSuffix(outputPath, Ext) {
		outputPath += Ext
	}
	return outputPath
}

// ImportResult contains information about an imported bundle.
type ImportResult struct {
	Manifest         Manifest
	RecordsPath      string
	CapabilitiesPath string
}

// Import unpacks a .atlas bundle into ATLAS_HOME/data and points the
// configured sources at the unpacked files. Existing files are only
// replaced with force.
func Import(st *store.Store, bundlePath string, force bool) (*ImportResult, error) {
	manifest, files, err := read(bundlePath)
	if err != nil {
		return nil, err
	}

	recData, ok := files[recordsName]
	if !ok {
		return nil, fmt.Errorf("invalid bundle: %s missing", recordsName)
	}
	capData, ok := files[capabilitiesName]
	if !ok {
		return nil, fmt.Errorf("invalid bundle: %s missing", capabilitiesName)
	}
	if _, err := record.Parse(recData); err != nil {
		return nil, fmt.Errorf("invalid bundle: %s: %w", recordsName, err)
	}
	if _, err := capability.ParseTaxonomy(capData); err != nil {
		return nil, fmt.Errorf("invalid bundle: %s: %w", capabilitiesName, err)
	}

	result := &ImportResult{
		Manifest:         *manifest,
		RecordsPath:      st.Path("data", recordsName),
		CapabilitiesPath: st.Path("data", capabilitiesName),
	}
	if !force {
		for _, p := range []string{result.RecordsPath, result.CapabilitiesPath} {
			if _, err := os.Stat(p); err == nil {
				return nil, fmt.Errorf("%s already exists (use --force to replace)", p)
			}
		}
	}

	if err := os.MkdirAll(st.Path("data"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := writeFile(result.RecordsPath, recData); err != nil {
		return nil, err
	}
	if err := writeFile(result.CapabilitiesPath, capData); err != nil {
		return nil, err
	}

	if err := st.SetConfigValue("sources.records", filepath.Join("data", recordsName)); err != nil {
		return nil, fmt.Errorf("failed to update config: %w", err)
	}
	if err := st.SetConfigValue("sources.capabilities", filepath.Join("data", capabilitiesName)); err != nil {
		return nil, fmt.Errorf("failed to update config: %w", err)
	}
	return result, nil
}

// ReadManifest reads only the manifest from a bundle.
func ReadManifest(bundlePath string) (*Manifest, error) {
	m, _, err := read(bundlePath)
	return m, err
}

func read(bundlePath string) (*Manifest, map[string][]byte, error) {
	inFile, err := os.Open(bundlePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer inFile.Close()

	gr, err := gzip.NewReader(inFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read gzip: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)

	var manifest *Manifest
	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read tar: %w", err)
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read file %s: %w", header.Name, err)
		}

		if header.Name == manifestName {
			manifest = &Manifest{}
			if err := yaml.Unmarshal(content, manifest); err != nil {
				return nil, nil, fmt.Errorf("failed to parse manifest: %w", err)
			}
			continue
		}
		files[header.Name] = content
	}

	if manifest == nil || manifest.Version == "" {
		return nil, nil, fmt.Errorf("invalid bundle: missing or empty manifest")
	}
	return manifest, files, nil
}

func writeFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return nil
}
