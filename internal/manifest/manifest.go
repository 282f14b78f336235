package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Row is one candidate as stored in JSONL and Parquet manifests. Page
// title and host repeat on every row.
type Row struct {
	Src       string `json:"src" parquet:"src"`
	Width     int    `json:"width" parquet:"width"`
	Height    int    `json:"height" parquet:"height"`
	Size      *int64 `json:"size,omitempty" parquet:"size,optional"`
	PageTitle string `json:"pageTitle,omitempty" parquet:"page_title"`
	PageHost  string `json:"pageHost,omitempty" parquet:"page_host"`
}

// document is the YAML layout
type document struct {
	Title  string                  `yaml:"title"`
	Host   string                  `yaml:"host"`
	Images []models.ImageCandidate `yaml:"images"`
}

// ErrUnsupportedFormat is returned for unknown manifest extensions
var ErrUnsupportedFormat = errors.New("unsupported manifest format (supported: .jsonl, .parquet, .yaml)")

// Write stores page at path, choosing the format from the extension.
// The file is written to a temporary name first and renamed into place.
func Write(path string, page *models.Page) error {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "jsonl":
		data, err = encodeJSONL(page)
	case "parquet":
		data, err = encodeParquet(page)
	case "yaml":
		data, err = yaml.Marshal(&document{Title: page.Title, Host: page.Host, Images: page.Images})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move manifest: %w", err)
	}

	slog.Info("Wrote manifest", "path", path, "images", len(page.Images))
	return nil
}

// Read loads a manifest written by Write
func Read(path string) (*models.Page, error) {
	switch format(path) {
	case "jsonl":
		return readJSONL(path)
	case "parquet":
		return readParquet(path)
	case "yaml":
		return readYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return "jsonl"
	case ".parquet":
		return "parquet"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

func rows(page *models.Page) []Row {
	out := make([]Row, len(page.Images))
	for i, img := range page.Images {
		out[i] = Row{
			Src:       img.Src,
			Width:     img.Width,
			Height:    img.Height,
			Size:      img.Size,
			PageTitle: page.Title,
			PageHost:  page.Host,
		}
	}
	return out
}

// fromRows rebuilds a page; title and host come from the first row
func fromRows(rs []Row) *models.Page {
	page := &models.Page{Images: make([]models.ImageCandidate, 0, len(rs))}
	for i, r := range rs {
		if i == 0 {
			page.Title, page.Host = r.PageTitle, r.PageHost
		}
		page.Images = append(page.Images, models.ImageCandidate{Src: r.Src, Width: r.Width, Height: r.Height, Size: r.Size})
	}
	return page
}

func encodeJSONL(page *models.Page) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows(page) {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func readJSONL(path string) (*models.Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var rs []Row
	scanner := bufio.NewScanner(file)
	const maxCapacity = 10 * 1024 * 1024 // data: locators can be long
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r Row
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rs = append(rs, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return fromRows(rs), nil
}

func encodeParquet(page *models.Page) ([]byte, error) {
	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Row](&buf)
	if _, err := writer.Write(rows(page)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readParquet(path string) (*models.Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet manifest opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rs []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rs = append(rs, batch[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return fromRows(rs), nil
}

func readYAML(path string) (*models.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML manifest: %w", err)
	}
	return &models.Page{Title: doc.Title, Host: doc.Host, Images: doc.Images}, nil
}
