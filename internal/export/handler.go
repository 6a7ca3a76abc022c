package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/inamate/kfedit/internal/auth"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
	"github.com/inamate/kfedit/internal/property"
	"github.com/inamate/kfedit/internal/render"
)

const (
	maxPresetSize = 1 << 20
	maxFrames     = 2000
)

// Properties is the part of the property service exports need.
type Properties interface {
	Get(ctx context.Context, id, userID string) (*document.Property, error)
	Save(ctx context.Context, userID string, doc *document.Property) error
	EngineOptions() engine.Options
}

var _ Properties = (*property.Service)(nil)

type Handler struct {
	props      Properties
	ffmpegPath string
	workers    int // frames rendered in parallel
}

func NewHandler(props Properties, ffmpegPath string, workers int) *Handler {
	return &Handler{props: props, ffmpegPath: ffmpegPath, workers: max(workers, 1)}
}

// Routes registers the export endpoints on an authenticated router.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/properties/{propertyId}/preview.png", h.PreviewPNG).Methods("GET")
	r.HandleFunc("/properties/{propertyId}/preview.{format:mp4|gif|webm}", h.PreviewVideo).Methods("GET")
	r.HandleFunc("/properties/{propertyId}/preset.yaml", h.GetPreset).Methods("GET")
	r.HandleFunc("/properties/{propertyId}/preset.yaml", h.PutPreset).Methods("PUT")
}

// PreviewPNG renders the editor panel at ?frame= as a PNG image.
func (h *Handler) PreviewPNG(w http.ResponseWriter, r *http.Request) {
	frame, _ := strconv.Atoi(r.URL.Query().Get("frame"))

	e, ok := h.loadEngine(w, r)
	if !ok {
		return
	}
	e.SetClipFrame(frame)

	var buf bytes.Buffer
	if err := rasterize(e, h.props.EngineOptions()).EncodePNG(&buf); err != nil {
		slog.Error("encode preview", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// PreviewVideo renders every frame of the clip and encodes them with
// ffmpeg.
func (h *Handler) PreviewVideo(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]

	fps, err := strconv.Atoi(r.URL.Query().Get("fps"))
	if err != nil || fps <= 0 || fps > 120 {
		fps = 24
	}

	doc, err := h.props.Get(r.Context(), mux.Vars(r)["propertyId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		property.HandleError(w, err)
		return
	}

	tempDir, err := os.MkdirTemp("", "kfedit-export-*")
	if err != nil {
		slog.Error("create temp dir", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tempDir)

	frames := min(doc.ClipLength, maxFrames)
	if err := h.renderFrames(r.Context(), doc, tempDir, frames); err != nil {
		slog.Error("render frames", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("export started", "format", format, "frames", frames, "fps", fps)

	input := filepath.Join(tempDir, "frame_%04d.png")
	outputFile := filepath.Join(tempDir, "output."+format)
	var contentType string
	var cmdErr error

	switch format {
	case "mp4":
		contentType = "video/mp4"
		cmdErr = h.runFfmpeg(r.Context(),
			"-framerate", strconv.Itoa(fps),
			"-i", input,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-crf", "18",
			"-preset", "fast",
			"-movflags", "+faststart",
			outputFile,
		)

	case "gif":
		contentType = "image/gif"
		// Two-pass GIF: generate palette then apply
		palettePath := filepath.Join(tempDir, "palette.png")
		cmdErr = h.runFfmpeg(r.Context(),
			"-framerate", strconv.Itoa(fps),
			"-i", input,
			"-vf", "palettegen=stats_mode=diff",
			palettePath,
		)
		if cmdErr == nil {
			cmdErr = h.runFfmpeg(r.Context(),
				"-framerate", strconv.Itoa(fps),
				"-i", input,
				"-i", palettePath,
				"-lavfi", "paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle",
				outputFile,
			)
		}

	case "webm":
		contentType = "video/webm"
		cmdErr = h.runFfmpeg(r.Context(),
			"-framerate", strconv.Itoa(fps),
			"-i", input,
			"-c:v", "libvpx-vp9",
			"-crf", "30",
			"-b:v", "0",
			"-pix_fmt", "yuva420p",
			outputFile,
		)
	}

	if cmdErr != nil {
		slog.Error("ffmpeg failed", "error", cmdErr)
		http.Error(w, fmt.Sprintf("encoding failed: %v", cmdErr), http.StatusInternalServerError)
		return
	}

	outFile, err := os.Open(outputFile)
	if err != nil {
		slog.Error("open output file", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer outFile.Close()

	stat, err := outFile.Stat()
	if err != nil {
		slog.Error("stat output file", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, mux.Vars(r)["propertyId"], format))
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	io.Copy(w, outFile)

	slog.Info("export complete", "format", format, "size", stat.Size())
}

// GetPreset downloads the keyframes as a YAML preset.
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["propertyId"]

	doc, err := h.props.Get(r.Context(), id, userID)
	if err != nil {
		property.HandleError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := document.WritePreset(&buf, doc); err != nil {
		slog.Error("write preset", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.yaml"`, sanitize(doc.Name)))
	w.Write(buf.Bytes())
}

// PutPreset replaces the property's animation with an uploaded preset.
// The preset must be of the property's kind; identity and storage fields
// are kept.
func (h *Handler) PutPreset(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["propertyId"]

	preset, err := document.ReadPreset(http.MaxBytesReader(w, r.Body, maxPresetSize))
	if err != nil {
		property.HandleError(w, err)
		return
	}

	doc, err := h.props.Get(r.Context(), id, userID)
	if err != nil {
		property.HandleError(w, err)
		return
	}
	if preset.Kind != doc.Kind {
		property.HandleError(w, fmt.Errorf("%w: preset is %s, property is %s", document.ErrInvalidDocument, preset.Kind, doc.Kind))
		return
	}

	doc.Source = preset.Source
	doc.ClipLength = preset.ClipLength
	doc.Interpolator = preset.Interpolator
	doc.AspectLocked = preset.AspectLocked
	doc.Keyframes = preset.Keyframes

	if err := h.props.Save(r.Context(), userID, doc); err != nil {
		property.HandleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(fmt.Sprintf(`{"version":%d}`, doc.Version)))
}

func (h *Handler) loadEngine(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	userID := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["propertyId"]

	doc, err := h.props.Get(r.Context(), id, userID)
	if err != nil {
		property.HandleError(w, err)
		return nil, false
	}
	e, err := engine.New(doc, h.props.EngineOptions())
	if err != nil {
		property.HandleError(w, err)
		return nil, false
	}
	return e, true
}

// renderFrames writes frame_NNNN.png for frames 0..n-1 into dir. Each
// worker owns an engine and takes every h.workers-th frame.
func (h *Handler) renderFrames(ctx context.Context, doc *document.Property, dir string, n int) error {
	opts := h.props.EngineOptions()
	g, ctx := errgroup.WithContext(ctx)
	for w := range min(h.workers, n) {
		g.Go(func() error {
			e, err := engine.New(doc, opts)
			if err != nil {
				return err
			}
			for i := w; i < n; i += h.workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				e.SetClipFrame(i)
				if err := writeFrame(filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i)), rasterize(e, opts)); err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func rasterize(e *engine.Engine, opts engine.Options) *render.Raster {
	ras := render.NewRaster(int(opts.PanelWidth), int(opts.PanelHeight))
	e.Render(ras)
	return ras
}

func writeFrame(path string, ras *render.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ras.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (h *Handler) runFfmpeg(ctx context.Context, args ...string) error {
	// Prepend -y to overwrite output without prompting
	fullArgs := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, h.ffmpegPath, fullArgs...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v: %s", err, stderr.String())
	}
	return nil
}

func sanitize(name string) string {
	if name == "" {
		return "preset"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
