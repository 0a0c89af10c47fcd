package certificate

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/journal-submission-api/internal/models"
	"github.com/skip2/go-qrcode"
)

// verifyNamespace seeds deterministic verification codes.
var verifyNamespace = uuid.MustParse("5b1f6c2e-8a43-4d0e-9c77-3f2a1e6d9b10")

// Data is what a certificate shows.
type Data struct {
	SubmissionID int64
	AuthorName   string
	Title        string
	Journal      *models.Journal
	PublishedAt  time.Time
}

// ID returns the printed certificate identifier, CAJ-{id}-{year}.
func (d Data) ID() string {
	return fmt.Sprintf("CAJ-%d-%d", d.SubmissionID, d.PublishedAt.Year())
}

// VerificationCode derives the stable code printed in the QR link.
func VerificationCode(certID string) string {
	return uuid.NewSHA1(verifyNamespace, []byte(certID)).String()
}

// Generator renders publication certificates as landscape A4 PDFs.
type Generator struct {
	verifyBaseURL string
	fontPath      string
}

// NewGenerator creates a generator. fontPath may be empty.
func NewGenerator(verifyBaseURL, fontPath string) *Generator {
	return &Generator{verifyBaseURL: strings.TrimRight(verifyBaseURL, "/"), fontPath: fontPath}
}

// VerifyURL is the link encoded in the QR code.
func (g *Generator) VerifyURL(d Data) string {
	id := d.ID()
	return fmt.Sprintf("%s/%s?code=%s", g.verifyBaseURL, id, VerificationCode(id))
}

var (
	gold = [3]int{212, 175, 55}
	blue = [3]int{26, 54, 93}
	gray = [3]int{110, 110, 110}
)

// Render writes the certificate for d in lang to w.
func (g *Generator) Render(w io.Writer, d Data, lang string) error {
	lang = MatchLanguage(lang)

	pdf := fpdf.New("L", "mm", "A4", "")
	font, tr := "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	if g.fontPath != "" {
		pdf.AddUTF8Font("certificate", "", g.fontPath)
		font, tr = "certificate", func(s string) string { return s }
	} else if lang == "ru" {
		// Core fonts have no Cyrillic glyphs.
		lang = "en"
	}
	t := translations[lang]

	pdf.SetTitle(t.Header, true)
	pdf.SetAuthor(t.Signed, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	width, height := pdf.GetPageSize()

	border(pdf, width, height)

	centered := func(y, size float64, rgb [3]int, text string) {
		pdf.SetFont(font, "", size)
		pdf.SetTextColor(rgb[0], rgb[1], rgb[2])
		pdf.SetXY(20, y)
		pdf.CellFormat(width-40, size*0.5, tr(text), "", 0, "C", false, 0, "")
	}

	certID := d.ID()
	centered(40, 32, blue, t.Header)
	centered(54, 10, gray, fmt.Sprintf("%s: %s", t.ID, certID))
	centered(72, 14, gray, t.AwardedTo)
	centered(84, 26, [3]int{0, 0, 0}, d.AuthorName)

	pdf.SetDrawColor(gold[0], gold[1], gold[2])
	pdf.SetLineWidth(0.4)
	pdf.Line(width/2-50, 100, width/2+50, 100)

	centered(106, 14, gray, t.ForPublishing)
	for i, line := range wrap(d.Title, 60, 2) {
		centered(116+float64(i)*8, 18, [3]int{0, 0, 0}, line)
	}

	centered(136, 14, gray, t.InJournal)
	journal := ""
	if d.Journal != nil {
		journal = strings.ToUpper(d.Journal.Name(lang))
	}
	if len([]rune(journal)) > 40 {
		for i, line := range wrap(journal, 45, 2) {
			centered(146+float64(i)*7, 16, blue, line)
		}
	} else {
		centered(146, 22, blue, journal)
	}

	pdf.SetFont(font, "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(30, height-35, tr(fmt.Sprintf("%s: %s", t.Date, d.PublishedAt.Format("02.01.2006"))))
	pdf.Text(30, height-28, tr(t.Signed))

	if err := g.qr(pdf, d, width, height); err != nil {
		return err
	}
	pdf.SetFont(font, "", 8)
	pdf.SetTextColor(blue[0], blue[1], blue[2])
	pdf.SetXY(width-65, height-25)
	pdf.CellFormat(35, 4, tr(t.Verify), "", 0, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}
	return pdf.Output(w)
}

func (g *Generator) qr(pdf *fpdf.Fpdf, d Data, width, height float64) error {
	png, err := qrcode.Encode(g.VerifyURL(d), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("qr", width-65, height-62, 35, 35, false, opts, 0, "")
	return nil
}

func border(pdf *fpdf.Fpdf, width, height float64) {
	pdf.SetDrawColor(gold[0], gold[1], gold[2])
	pdf.SetLineWidth(1.8)
	pdf.Rect(10, 10, width-20, height-20, "D")

	pdf.SetDrawColor(blue[0], blue[1], blue[2])
	pdf.SetLineWidth(0.5)
	pdf.Rect(13, 13, width-26, height-26, "D")

	pdf.SetDrawColor(gold[0], gold[1], gold[2])
	pdf.SetLineWidth(1)
	const c = 20.0
	for _, p := range [][2]float64{{13, 13}, {width - 13, 13}, {13, height - 13}, {width - 13, height - 13}} {
		dx, dy := c, c
		if p[0] > width/2 {
			dx = -c
		}
		if p[1] > height/2 {
			dy = -c
		}
		pdf.Line(p[0], p[1], p[0]+dx, p[1])
		pdf.Line(p[0], p[1], p[0], p[1]+dy)
	}
}

// wrap splits text into at most maxLines lines of roughly width runes.
// Overflow is appended to the last line.
func wrap(text string, width, maxLines int) []string {
	words := strings.Fields(text)
	var lines []string
	var cur []string
	for _, w := range words {
		next := strings.Join(append(cur, w), " ")
		if len(cur) > 0 && len([]rune(next)) > width && len(lines) < maxLines-1 {
			lines = append(lines, strings.Join(cur, " "))
			cur = []string{w}
			continue
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}
