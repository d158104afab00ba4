package proposal

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/tender"
)

// Files lists the artifacts produced for one RFP, as names relative to the
// renderer's output directory.
type Files struct {
	Proposal string `json:"proposal"`
	Quote    string `json:"quote"`
}

// Renderer writes the proposal PDF and the quote workbook of priced RFPs.
type Renderer struct {
	dir    string
	logger *zap.Logger
}

func NewRenderer(dir string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{dir: dir, logger: logger}
}

// Dir is the directory generated files are written to.
func (r *Renderer) Dir() string {
	return r.dir
}

// Render produces the proposal for an RFP whose technical and commercial
// stages have completed.
func (r *Renderer) Render(rfp *tender.RFP) (Files, error) {
	if rfp == nil {
		return Files{}, fmt.Errorf("rfp is required")
	}
	if err := rfp.Data.RequireCommercial(); err != nil {
		return Files{}, err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}

	files := Files{
		Proposal: fmt.Sprintf("proposal_%d.pdf", rfp.ID),
		Quote:    fmt.Sprintf("quote_%d.xlsx", rfp.ID),
	}

	if err := writePDF(filepath.Join(r.dir, files.Proposal), rfp); err != nil {
		return Files{}, err
	}
	if err := writeQuote(filepath.Join(r.dir, files.Quote), rfp.Data.Commercial); err != nil {
		return Files{}, err
	}

	r.logger.Info("proposal rendered",
		zap.Int("rfp_id", rfp.ID),
		zap.String("proposal", files.Proposal),
		zap.String("quote", files.Quote),
	)

	return files, nil
}

// Path resolves a generated file name inside the output directory. Names that
// try to escape it are rejected.
func (r *Renderer) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file %s: %w", name, tender.ErrNotFound)
		}
		return "", err
	}
	return path, nil
}
