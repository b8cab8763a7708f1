package workflows

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/extract"
	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/internal/parse"
	"github.com/docmakerhq/docmaker/internal/storage"
)

// ExtractWorkflow turns parsed brief text into a structured campaign
// brief via the LLM. When parse left no text (scanned brief), it sends
// the original upload through the vision path instead.
type ExtractWorkflow struct {
	store     DocumentStore
	reader    storage.Reader
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewExtractWorkflow creates an extract workflow.
func NewExtractWorkflow(store DocumentStore, reader storage.Reader, extractor *extract.Extractor, logger *zap.Logger) *ExtractWorkflow {
	return &ExtractWorkflow{
		store:     store,
		reader:    reader,
		extractor: extractor,
		logger:    logger.Named("extract"),
	}
}

// Name returns the workflow name.
func (w *ExtractWorkflow) Name() string {
	return "extract"
}

// Execute runs the extract workflow.
func (w *ExtractWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	doc, err := getDocument(wctx.Ctx, w.store, wctx.Request)
	if err != nil {
		return failure(err)
	}

	// An image brief always goes to the vision model, even when a
	// kickoff document left source text behind; the brief is the
	// primary document and the text alone would miss it.
	in := extract.Input{Text: doc.SourceText}
	if doc.BriefUploadID != nil {
		data, err := readContent(wctx.Ctx, w.reader, doc.BriefUploadID.String())
		switch {
		case err != nil && in.Text == "":
			return failure(err)
		case err != nil:
			w.logger.Warn("failed to read brief upload, extracting from text only", zap.Error(err))
		default:
			if parse.Detect(data) == parse.FormatImage {
				mimeType := parse.ImageMIMEType(data)
				in.Image = &llm.Image{MIMEType: mimeType, Data: data}
				w.logger.Info("extracting via vision", zap.String("mime_type", mimeType))
			}
		}
	}
	if in.Text == "" && in.Image == nil {
		if doc.BriefUploadID == nil {
			return failure(ErrMissingUpload)
		}
		return failure(fmt.Errorf("no source text and brief upload is not an image; run parse first"))
	}

	brief, err := w.extractor.Extract(wctx.Ctx, in)
	if err != nil {
		return failure(fmt.Errorf("extraction failed: %w", err))
	}

	if err := patchSection(wctx.Ctx, w.store, doc.ID, "brief", brief); err != nil {
		return failure(err)
	}

	// An untitled document takes its title from the brief.
	if doc.Title == "" && brief.BrandName != "" {
		title := fmt.Sprintf("%s campaign", brief.BrandName)
		if err := w.store.SetTitle(wctx.Ctx, doc.ID, title); err != nil {
			w.logger.Warn("failed to set title", zap.Error(err))
		}
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"brand_name": brief.BrandName,
			"vision":     in.Image != nil,
		},
	}, nil
}
