package infra

// invoice_pdf.go renders the A4 customer invoice with go-pdf/fpdf:
//   - optional letterhead drawn behind every page
//   - customer header (name, phone, date, payment method)
//   - item table (index + product name, warranty, price)
//   - totals block (subtotal, discount when non-zero, bold total)
//   - closing line at the foot of the last page
//
// All money comes from pricing.Totals; nothing is recomputed here.

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"time"

	"maaztelecom/internal/model"
	"maaztelecom/internal/pricing"

	"github.com/go-pdf/fpdf"
	"github.com/nfnt/resize"
)

const (
	letterheadName = "letterhead"
	// A4 at ~150 dpi; larger scans are downscaled before embedding.
	letterheadMaxWidth = 1240

	unknownProduct = "Unknown Product"
)

var inkColor = [3]int{12, 29, 73}

// NameResolver looks up a catalog product name by id.
type NameResolver func(productID string) (string, bool)

// InvoiceDocument is a rendered invoice ready for upload.
type InvoiceDocument struct {
	Filename string
	Data     []byte
	Pages    int
}

// InvoiceRenderer holds the layout inputs shared by every invoice.
type InvoiceRenderer struct {
	shopName   string
	letterhead []byte // JPEG, nil when not configured
	loc        *time.Location
}

// NewInvoiceRenderer loads and downscales the letterhead image, if a path is given.
func NewInvoiceRenderer(shopName, letterheadPath string, loc *time.Location) (*InvoiceRenderer, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &InvoiceRenderer{shopName: shopName, loc: loc}
	if letterheadPath == "" {
		return r, nil
	}

	f, err := os.Open(letterheadPath)
	if err != nil {
		return nil, fmt.Errorf("pdf: open letterhead: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("pdf: decode letterhead: %w", err)
	}
	if img.Bounds().Dx() > letterheadMaxWidth {
		img = resize.Resize(letterheadMaxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("pdf: encode letterhead: %w", err)
	}
	r.letterhead = buf.Bytes()
	return r, nil
}

// InvoiceFilename is the storage name of a sale's invoice.
func InvoiceFilename(sale *model.Sale) string {
	return fmt.Sprintf("Invoice_%s_%s.pdf", sale.Timestamp.Format("2006-01-02"), sale.ID)
}

// Render produces the invoice PDF. Line names come from the sale snapshot,
// then from names, then fall back to "Unknown Product".
func (r *InvoiceRenderer) Render(sale *model.Sale, totals pricing.Totals, names NameResolver) (*InvoiceDocument, error) {
	if len(totals.Lines) != len(sale.Products) {
		return nil, fmt.Errorf("pdf: %d priced lines for %d sale lines", len(totals.Lines), len(sale.Products))
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 50, 20)
	pdf.SetAutoPageBreak(true, 30)
	pdf.SetTitle("Invoice "+sale.ID, true)
	pdf.SetCreator(r.shopName, true)

	if r.letterhead != nil {
		pdf.RegisterImageOptionsReader(letterheadName, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(r.letterhead))
		pdf.SetHeaderFunc(func() {
			pdf.ImageOptions(letterheadName, 0, 0, 210, 297, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
			pdf.SetXY(20, 50)
		})
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetTextColor(inkColor[0], inkColor[1], inkColor[2])

	// ── Customer ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(20, 50, tr("Name: "+sale.Username))
	pdf.Text(20, 60, "Phone: "+sale.PhoneNumber)
	pdf.Text(130, 50, "Date: "+sale.Timestamp.In(r.loc).Format("02/01/2006"))
	pdf.Text(130, 60, "Payment Method: "+string(sale.PaymentMethod))

	// ── Items header ──────────────────────────────────────────────────────────
	const (
		colProduct  = 100.0
		colWarranty = 40.0
		colPrice    = 30.0
		rowH        = 8.0
	)
	header := func() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(colProduct, rowH, "Product", "B", 0, "L", false, 0, "")
		pdf.CellFormat(colWarranty, rowH, "Warranty", "B", 0, "R", false, 0, "")
		pdf.CellFormat(colPrice, rowH, "Price (Rs.)", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	pdf.SetXY(20, 75)
	header()

	// ── Item rows ─────────────────────────────────────────────────────────────
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, line := range sale.Products {
		if pdf.GetY()+rowH > pageH-bottom {
			pdf.AddPage()
			pdf.SetTextColor(inkColor[0], inkColor[1], inkColor[2])
			header()
		}
		name := tr(fmt.Sprintf("%d. %s", i+1, lineName(line, names)))
		pdf.CellFormat(colProduct, rowH, truncate(pdf, name, colProduct-2), "", 0, "L", false, 0, "")
		pdf.CellFormat(colWarranty, rowH, warrantyText(line.Warranty), "", 0, "R", false, 0, "")
		pdf.CellFormat(colPrice, rowH, totals.Lines[i].Display.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Totals ────────────────────────────────────────────────────────────────
	if pdf.GetY()+3*rowH+4 > pageH-bottom {
		pdf.AddPage()
		pdf.SetTextColor(inkColor[0], inkColor[1], inkColor[2])
	}
	pdf.Ln(4)
	out := totals.Display()
	labelW := colProduct + colWarranty
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(labelW, rowH, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colPrice, rowH, out.RawSubtotal, "", 1, "R", false, 0, "")
	if totals.HasDiscount() {
		pdf.CellFormat(labelW, rowH, "Discount:", "", 0, "R", false, 0, "")
		pdf.CellFormat(colPrice, rowH, out.TotalDiscount, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(labelW, rowH, "Total:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colPrice, rowH, out.FinalTotal, "", 1, "R", false, 0, "")

	// ── Footer ────────────────────────────────────────────────────────────────
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "I", 11)
	pdf.SetXY(20, 275)
	pdf.CellFormat(170, 6, "Thank you for your business!", "", 0, "C", false, 0, "")

	pages := pdf.PageCount()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: write document: %w", err)
	}
	return &InvoiceDocument{Filename: InvoiceFilename(sale), Data: buf.Bytes(), Pages: pages}, nil
}

func lineName(line model.SaleLineItem, names NameResolver) string {
	if line.ProductName != "" {
		return line.ProductName
	}
	if names != nil {
		if n, ok := names(line.ProductID); ok && n != "" {
			return n
		}
	}
	return unknownProduct
}

func warrantyText(w model.Warranty) string {
	if !w.HasWarranty || w.Months <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d months", w.Months)
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 1 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
