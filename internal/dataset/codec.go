// Package dataset loads the parcel, parish and walkability GeoJSON layers and
// the Sommarioni registry, and writes enriched layers back out. Files whose
// name ends in ".sz" are snappy framed.
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// SnappySuffix marks snappy-framed files.
const SnappySuffix = ".sz"

// RegistryFormat is the serialisation of the registry table.
type RegistryFormat string

const (
	FormatCSV  RegistryFormat = "csv"
	FormatJSON RegistryFormat = "json"
)

// FormatFor guesses the registry format from a file name, ignoring a
// trailing ".sz". Unknown extensions give FormatJSON.
func FormatFor(name string) RegistryFormat {
	name = strings.TrimSuffix(strings.ToLower(name), SnappySuffix)
	if filepath.Ext(name) == ".csv" {
		return FormatCSV
	}
	return FormatJSON
}

// DecodeFeatures reads a GeoJSON FeatureCollection.
func DecodeFeatures(r io.Reader) (*types.FeatureCollection, error) {
	var fc types.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, serrors.NewDatasetError(serrors.CodeDecodeFailed, "decode feature collection", err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, serrors.NewDatasetError(serrors.CodeDecodeFailed,
			fmt.Sprintf("expected FeatureCollection, got %q", fc.Type), nil)
	}
	if fc.Type == "" {
		fc.Type = "FeatureCollection"
	}
	if fc.Features == nil {
		fc.Features = []types.Feature{}
	}
	for i := range fc.Features {
		if fc.Features[i].Properties == nil {
			fc.Features[i].Properties = types.Properties{}
		}
	}
	return &fc, nil
}

// EncodeFeatures writes fc as GeoJSON.
func EncodeFeatures(w io.Writer, fc *types.FeatureCollection) error {
	if fc == nil {
		fc = types.NewFeatureCollection(nil, 0)
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return serrors.NewDatasetError(serrors.CodeEncodeFailed, "encode feature collection", err)
	}
	return nil
}

// DecodeRegistry reads registry rows. CSV input needs a header row; empty
// cells become null. JSON input is an array of objects.
func DecodeRegistry(r io.Reader, format RegistryFormat) ([]types.Record, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatJSON:
		var records []types.Record
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, serrors.NewDatasetError(serrors.CodeDecodeFailed, "decode registry json", err)
		}
		return records, nil
	default:
		return nil, serrors.NewValidationError(serrors.CodeInvalidInput,
			fmt.Sprintf("unknown registry format %q", format))
	}
}

func decodeCSV(r io.Reader) ([]types.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []types.Record{}, nil
	}
	if err != nil {
		return nil, serrors.NewDatasetError(serrors.CodeDecodeFailed, "read registry header", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}

	var records []types.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, serrors.NewDatasetError(serrors.CodeDecodeFailed, "read registry row", err)
		}
		rec := make(types.Record, len(header))
		for i, name := range header {
			if i >= len(row) || row[i] == "" {
				rec[name] = nil
				continue
			}
			rec[name] = row[i]
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []types.Record{}
	}
	return records, nil
}

// OpenFile opens path for reading, unwrapping snappy framing when the name
// ends in ".sz".
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, SnappySuffix) {
		return f, nil
	}
	return &snappyReadCloser{Reader: snappy.NewReader(bufio.NewReader(f)), file: f}, nil
}

type snappyReadCloser struct {
	*snappy.Reader
	file *os.File
}

func (s *snappyReadCloser) Close() error {
	return s.file.Close()
}

// ReadFeatureFile decodes a GeoJSON file from disk.
func ReadFeatureFile(path string) (*types.FeatureCollection, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return nil, serrors.NewDatasetError(serrors.CodeDatasetMissing, "open "+path, err)
	}
	defer rc.Close()
	return DecodeFeatures(rc)
}

// ReadRegistryFile decodes a registry file from disk.
func ReadRegistryFile(path string, format RegistryFormat) ([]types.Record, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return nil, serrors.NewDatasetError(serrors.CodeDatasetMissing, "open "+path, err)
	}
	defer rc.Close()
	return DecodeRegistry(rc, format)
}

// WriteFeatureFile writes fc to path through a temporary file, snappy
// framing the output when path ends in ".sz".
func WriteFeatureFile(path string, fc *types.FeatureCollection) error {
	return writeFile(path, func(w io.Writer) error { return EncodeFeatures(w, fc) })
}

// WriteJSONFile writes v as indented JSON to path, with the same framing
// rules as WriteFeatureFile.
func WriteJSONFile(path string, v interface{}) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return serrors.NewDatasetError(serrors.CodeEncodeFailed, "encode json", err)
		}
		return nil
	})
}

func writeFile(path string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp)

	var w io.Writer = f
	var sw *snappy.Writer
	if strings.HasSuffix(path, SnappySuffix) {
		sw = snappy.NewBufferedWriter(f)
		w = sw
	}
	if err := encode(w); err != nil {
		f.Close()
		return err
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			f.Close()
			return fmt.Errorf("failed to flush snappy stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return os.Rename(tmp, path)
}
