package document

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	_ "golang.org/x/image/webp"

	"github.com/brogergvhs/mangapdf/internal/ui"
)

// ErrEncode marks a page whose image could not be placed in the document.
var ErrEncode = errors.New("page encode failed")

// EncodeError reports a page that was left blank.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("page %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() []error {
	return []error{ErrEncode, e.Err}
}

// Page records how one appended image ended up in the document.
type Page struct {
	Source   string
	Layout   Layout
	Fallback bool
	Err      error
}

// Assembler owns a PDF under construction. Pages are appended in call order,
// one image per page at the page origin. It is not safe for concurrent use.
type Assembler struct {
	pdf   *gofpdf.Fpdf
	sizes PageSizes
	log   *ui.Logger
	pages []Page
}

func NewAssembler(sizes PageSizes, log *ui.Logger) *Assembler {
	pdf := gofpdf.New(string(Portrait), "mm", "", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	return &Assembler{
		pdf:   pdf,
		sizes: sizes,
		log:   log,
	}
}

// AppendPage adds dir/name as the next page. A page is always added; when the
// image cannot be placed, even after one re-encode to PNG, the page stays
// blank and an *EncodeError is returned. The document remains usable.
func (a *Assembler) AppendPage(dir, name string) error {
	return a.Append(filepath.Join(dir, name))
}

func (a *Assembler) Append(path string) error {
	w, h, err := imageSize(path)
	if err != nil {
		// no dimensions, reserve a blank page so page numbering stays intact
		layout := Layout{Orientation: Portrait}
		a.addPage(layout.Orientation)
		return a.record(Page{Source: path, Layout: layout, Err: err})
	}

	layout := Resolve(w, h, a.sizes)
	a.addPage(layout.Orientation)

	err = a.place(path, layout)
	if err == nil {
		return a.record(Page{Source: path, Layout: layout})
	}
	a.log.Debugf("placing %s failed, re-encoding: %v\n", path, err)

	fallback, err := reencodePNG(path)
	if err != nil {
		return a.record(Page{Source: path, Layout: layout, Err: err})
	}

	if err := a.place(fallback, layout); err != nil {
		return a.record(Page{Source: path, Layout: layout, Fallback: true, Err: err})
	}

	return a.record(Page{Source: path, Layout: layout, Fallback: true})
}

func (a *Assembler) record(p Page) error {
	if p.Err != nil {
		p.Err = &EncodeError{Path: p.Source, Err: p.Err}
		a.log.Warnf("%v\n", p.Err)
	}
	a.pages = append(a.pages, p)
	return p.Err
}

func (a *Assembler) addPage(o Orientation) {
	portrait := a.sizes.Portrait
	a.pdf.AddPageFormat(string(o), gofpdf.SizeType{Wd: portrait.Width, Ht: portrait.Height})
}

// place draws the image at the page origin. gofpdf keeps a sticky error, so
// a failed placement is cleared to keep the document writable.
func (a *Assembler) place(path string, l Layout) error {
	a.pdf.ImageOptions(path, 0, 0, l.Width, l.Height, false, gofpdf.ImageOptions{}, 0, "")
	if err := a.pdf.Error(); err != nil {
		a.pdf.ClearError()
		return err
	}
	return nil
}

// PageCount is the number of pages added so far.
func (a *Assembler) PageCount() int {
	return a.pdf.PageCount()
}

// Pages returns the per-page records in document order.
func (a *Assembler) Pages() []Page {
	out := make([]Page, len(a.pages))
	copy(out, a.pages)
	return out
}

// Finalize serialises the document. An empty document is written with a
// single blank page.
func (a *Assembler) Finalize(w io.Writer) error {
	if err := a.pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

func (a *Assembler) FinalizeFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := a.Finalize(f); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image header: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}

// reencodePNG decodes path in whatever format it really is and writes an
// 8-bit PNG next to it under the same stem.
func reencodePNG(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(src)
	_ = src.Close()
	if err != nil {
		return "", fmt.Errorf("decoding for re-encode: %w", err)
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	if out == path {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + "_fallback.png"
	}

	// gofpdf only reads 8-bit, non-interlaced PNG
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, rgba); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encoding png: %w", err)
	}

	return out, f.Close()
}
