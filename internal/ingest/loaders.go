// Package ingest turns contract files into passages with provenance.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"contract-qa/internal/common/httpclient"

	"github.com/xuri/excelize/v2"
)

// Document is the text of one file, or of one sheet of a workbook.
type Document struct {
	Source    string
	SheetName string
	Text      string
}

// Loader extracts documents from a file on disk.
type Loader interface {
	Extensions() []string
	Load(ctx context.Context, path string) ([]Document, error)
}

// TextLoader reads plain text and markdown.
type TextLoader struct{}

func (TextLoader) Extensions() []string { return []string{".txt", ".md", ".markdown"} }

func (TextLoader) Load(_ context.Context, path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []Document{{Source: filepath.Base(path), Text: string(data)}}, nil
}

// CSVLoader renders each row as "header: value" pairs so a passage keeps its
// column context.
type CSVLoader struct{}

func (CSVLoader) Extensions() []string { return []string{".csv"} }

func (CSVLoader) Load(_ context.Context, path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return []Document{{Source: filepath.Base(path), Text: renderRows(records)}}, nil
}

// XLSXLoader yields one document per non-empty sheet.
type XLSXLoader struct{}

func (XLSXLoader) Extensions() []string { return []string{".xlsx", ".xlsm"} }

func (XLSXLoader) Load(_ context.Context, path string) ([]Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var docs []Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		text := renderRows(rows)
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{Source: filepath.Base(path), SheetName: sheet, Text: text})
	}
	return docs, nil
}

func renderRows(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	header := rows[0]
	var b strings.Builder
	for i, row := range rows {
		var cells []string
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if i > 0 && j < len(header) && strings.TrimSpace(header[j]) != "" {
				cells = append(cells, strings.TrimSpace(header[j])+": "+cell)
			} else {
				cells = append(cells, cell)
			}
		}
		if len(cells) == 0 {
			continue
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

// PDFLoader posts the raw file to a text-extraction service (POST /parse).
type PDFLoader struct {
	serviceURL string
	client     *httpclient.Client
}

func NewPDFLoader(serviceURL string) *PDFLoader {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &PDFLoader{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client:     httpclient.NewClient(60 * time.Second),
	}
}

func (l *PDFLoader) Extensions() []string { return []string{".pdf"} }

type parseResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

func (l *PDFLoader) Load(ctx context.Context, path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filepath.Base(path))

	var result parseResponse
	if err := l.client.DoJSON(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("calling PDF service: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("PDF parse error: %s", result.Error)
	}
	return []Document{{Source: filepath.Base(path), Text: result.Text}}, nil
}
