package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/metrics"
	"contract-qa/internal/models"

	"github.com/google/uuid"
)

// passageNamespace seeds deterministic passage ids.
var passageNamespace = uuid.MustParse("6f1d3c2a-8b4e-4f0a-9c6d-2e7b5a1f9d30")

// FileReport records the outcome for one input file.
type FileReport struct {
	Source   string `json:"source"`
	Passages int    `json:"passages"`
	Status   string `json:"status"` // ok | failed | skipped
	Error    string `json:"error,omitempty"`
}

type Report struct {
	Files    []FileReport     `json:"files"`
	Passages []models.Passage `json:"-"`
}

// Ingestor loads, tags and splits files into passages.
type Ingestor struct {
	loaders  map[string]Loader
	splitter *Splitter
	tagger   *Tagger
	maxBytes int64
	logger   logger.Logger
}

func NewIngestor(splitter *Splitter, tagger *Tagger, maxBytes int64, log logger.Logger, loaders ...Loader) *Ingestor {
	byExt := make(map[string]Loader)
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			byExt[ext] = l
		}
	}
	return &Ingestor{
		loaders:  byExt,
		splitter: splitter,
		tagger:   tagger,
		maxBytes: maxBytes,
		logger:   log.With(map[string]interface{}{"component": "ingest"}),
	}
}

// Supports reports whether a loader is registered for path's extension.
func (in *Ingestor) Supports(path string) bool {
	_, ok := in.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IngestDir ingests every supported file under dir, in lexical path order.
func (in *Ingestor) IngestDir(ctx context.Context, dir string) (*Report, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewIngestFailedError(dir, err)
	}
	sort.Strings(paths)
	return in.IngestFiles(ctx, paths), nil
}

// IngestFiles never fails as a whole; per-file problems are recorded in the
// report and the remaining files still contribute passages.
func (in *Ingestor) IngestFiles(ctx context.Context, paths []string) *Report {
	report := &Report{}
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		passages, err := in.ingestFile(ctx, path)
		fr := FileReport{Source: filepath.Base(path), Passages: len(passages), Status: "ok"}
		if err != nil {
			fr.Status = "failed"
			if stdErr, ok := apperrors.AsStandard(err); ok && stdErr.Code == apperrors.ErrCodeUnsupportedFormat {
				fr.Status = "skipped"
			}
			fr.Error = err.Error()
			in.logger.Warn("file not ingested", map[string]interface{}{
				"source": fr.Source,
				"status": fr.Status,
				"error":  err.Error(),
			})
		}
		metrics.IngestFiles.WithLabelValues(fr.Status).Inc()
		report.Files = append(report.Files, fr)
		report.Passages = append(report.Passages, passages...)
	}

	in.logger.Info("ingestion finished", map[string]interface{}{
		"files":    len(report.Files),
		"passages": len(report.Passages),
	})
	return report
}

func (in *Ingestor) ingestFile(ctx context.Context, path string) ([]models.Passage, error) {
	source := filepath.Base(path)
	loader, ok := in.loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, apperrors.NewUnsupportedFormatError(source)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewIngestFailedError(source, err)
	}
	if in.maxBytes > 0 && info.Size() > in.maxBytes {
		return nil, apperrors.NewFileTooLargeError(source, info.Size(), in.maxBytes)
	}

	docs, err := loader.Load(ctx, path)
	if err != nil {
		return nil, apperrors.NewIngestFailedError(source, err)
	}

	var out []models.Passage
	for _, doc := range docs {
		customer := in.tagger.Tag(doc.Source, doc.Text)
		for i, chunk := range in.splitter.Split(doc.Text) {
			p := models.Passage{
				ID:   passageID(doc, i, chunk),
				Text: chunk,
				Provenance: models.Provenance{
					CustomerTag: customer,
					SourceFile:  doc.Source,
					SheetName:   doc.SheetName,
				},
			}
			if p.Normalize() {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func passageID(doc Document, index int, chunk string) string {
	key := doc.Source + "\x00" + doc.SheetName + "\x00" + strconv.Itoa(index) + "\x00" + chunk
	return uuid.NewSHA1(passageNamespace, []byte(key)).String()
}
