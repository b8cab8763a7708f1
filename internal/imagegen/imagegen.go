// Package imagegen generates campaign artwork from the brief and brand
// profile, post-processes it, and stores it as derived content on the
// brief upload.
package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder; providers return PNG
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/internal/storage"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// ImageProvider renders one image from a prompt.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req llm.ImageRequest) ([]byte, error)
}

// Image roles rendered per document. The cover leads the proposal or
// deck; the backdrop sits behind content sections.
const (
	RoleCover    = "cover"
	RoleBackdrop = "backdrop"
)

const (
	coverWidth  = 1536
	coverHeight = 1024

	previewWidth  = 384
	previewHeight = 256

	jpegQuality = 80
)

// Generator runs the image generation stage.
type Generator struct {
	provider ImageProvider
	writer   storage.Writer
	logger   *zap.Logger
}

// NewGenerator creates a generator.
func NewGenerator(provider ImageProvider, writer storage.Writer, logger *zap.Logger) *Generator {
	return &Generator{
		provider: provider,
		writer:   writer,
		logger:   logger.Named("imagegen"),
	}
}

// Generate renders the cover and backdrop images, fits each to its
// target size plus a small preview, and stores both as derived content
// under parentContentID. A failed role degrades; Generate fails only
// when no image could be produced.
func (g *Generator) Generate(ctx context.Context, parentContentID string, brief *docmaker.CampaignBrief, profile *docmaker.BrandProfile) ([]docmaker.GeneratedImage, error) {
	if brief == nil {
		return nil, fmt.Errorf("no brief to build prompts from")
	}

	roles := []struct {
		role   string
		prompt string
	}{
		{RoleCover, coverPrompt(brief, profile)},
		{RoleBackdrop, backdropPrompt(brief, profile)},
	}

	var (
		images  []docmaker.GeneratedImage
		lastErr error
	)
	for _, r := range roles {
		img, err := g.generateOne(ctx, parentContentID, r.role, r.prompt)
		if err != nil {
			lastErr = err
			g.logger.Warn("image generation failed",
				zap.String("role", r.role),
				zap.Error(err))
			continue
		}
		images = append(images, *img)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no image could be generated: %w", lastErr)
	}
	return images, nil
}

func (g *Generator) generateOne(ctx context.Context, parentContentID, role, prompt string) (*docmaker.GeneratedImage, error) {
	raw, err := g.provider.GenerateImage(ctx, llm.ImageRequest{
		Prompt: prompt,
		Size:   fmt.Sprintf("%dx%d", coverWidth, coverHeight),
	})
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode generated image: %w", err)
	}
	g.logger.Debug("image decoded",
		zap.String("role", role),
		zap.String("format", format),
		zap.Int("bytes", len(raw)))

	full := imaging.Fit(src, coverWidth, coverHeight, imaging.Lanczos)
	fullID, w, h, err := g.putJPEG(ctx, parentContentID, docmaker.DerivedTypeGeneratedImage, role, full)
	if err != nil {
		return nil, err
	}

	preview := imaging.Fit(src, previewWidth, previewHeight, imaging.Lanczos)
	previewID, _, _, err := g.putJPEG(ctx, parentContentID, docmaker.DerivedTypeImagePreview, role, preview)
	if err != nil {
		// The full image is stored; a missing preview is not fatal.
		g.logger.Warn("preview write failed", zap.String("role", role), zap.Error(err))
	}

	out := &docmaker.GeneratedImage{
		Role:   role,
		Prompt: prompt,
		Width:  w,
		Height: h,
	}
	id, err := uuid.Parse(fullID)
	if err != nil {
		return nil, fmt.Errorf("derived writer returned a bad content id: %w", err)
	}
	out.ContentID = id
	if previewID != "" {
		if pid, err := uuid.Parse(previewID); err == nil {
			out.PreviewID = pid
		}
	}
	return out, nil
}

// putJPEG encodes an image at quality 80 and stores it as derived
// content, returning the derived content ID and final dimensions.
func (g *Generator) putJPEG(ctx context.Context, parentContentID, derivedType, role string, img image.Image) (string, int, int, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", 0, 0, fmt.Errorf("JPEG encode failed: %w", err)
	}

	bounds := img.Bounds()
	meta := map[string]string{
		"file_name": fmt.Sprintf("%s_%s.jpg", role, derivedType),
		"width":     strconv.Itoa(bounds.Dx()),
		"height":    strconv.Itoa(bounds.Dy()),
		"mime_type": "image/jpeg",
		"role":      role,
	}

	id, err := g.writer.PutDerived(ctx, parentContentID, derivedType, 1, &buf, meta)
	if err != nil {
		return "", 0, 0, fmt.Errorf("derived write failed: %w", err)
	}
	return id, bounds.Dx(), bounds.Dy(), nil
}

func coverPrompt(brief *docmaker.CampaignBrief, profile *docmaker.BrandProfile) string {
	var sb strings.Builder
	sb.WriteString("Wide hero image for a marketing proposal cover. ")
	if brief.BrandName != "" {
		sb.WriteString("Brand: " + brief.BrandName + ". ")
	}
	if brief.Industry != "" {
		sb.WriteString("Industry: " + brief.Industry + ". ")
	}
	if tone := toneHint(brief, profile); tone != "" {
		sb.WriteString("Visual tone: " + tone + ". ")
	}
	sb.WriteString("Photographic, premium, no text, no logos, no people's faces in close-up.")
	return sb.String()
}

func backdropPrompt(brief *docmaker.CampaignBrief, profile *docmaker.BrandProfile) string {
	var sb strings.Builder
	sb.WriteString("Subtle abstract background texture for presentation slides. ")
	if brief.Industry != "" {
		sb.WriteString("Evokes the " + brief.Industry + " industry. ")
	}
	if tone := toneHint(brief, profile); tone != "" {
		sb.WriteString("Mood: " + tone + ". ")
	}
	sb.WriteString("Soft gradients, low contrast, no text, leaves room for overlaid content.")
	return sb.String()
}

// toneHint prefers researched tone words over the brief's stated tone.
func toneHint(brief *docmaker.CampaignBrief, profile *docmaker.BrandProfile) string {
	if profile != nil && len(profile.ToneWords) > 0 {
		words := profile.ToneWords
		if len(words) > 3 {
			words = words[:3]
		}
		return strings.Join(words, ", ")
	}
	return brief.Tone
}
