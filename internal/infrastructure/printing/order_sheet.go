package printing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

const sheetTimeLayout = "02.01.2006 15:04"

type sheetRow struct {
	Number    int
	Image     string
	ImageData template.URL
	ID        int64
	Name      string
	Qty       int64
	Weight    string
	Cube      string
	Price     string
	Sum       string
}

type sheetView struct {
	Company     string
	Manager     string
	OrderID     string
	Date        string
	ClientName  string
	Category    string
	Coordinates string
	MapURL      string
	Approved    bool
	Rows        []sheetRow
	TotalWeight string
	TotalCube   string
	Total       string
}

var orderSheetTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.OrderID}}</title>
<style>
body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: 9pt; }
h1 { font-size: 14pt; margin: 0; }
table { width: 100%; border-collapse: collapse; margin-top: 6mm; }
th { font-size: 7pt; text-align: left; border-bottom: 1px solid #000; }
td { font-size: 7pt; padding: 1mm 0; vertical-align: middle; }
td.num { text-align: right; }
img { width: 16mm; height: 16mm; object-fit: contain; }
.category { color: #0058cc; }
.coords { color: #646464; }
.totals { text-align: right; font-size: 10pt; margin-top: 4mm; }
.signature { margin-top: 12mm; }
.signature .name { color: #0058cc; font-size: 20pt; border-bottom: 1px solid #000; width: 65mm; }
.stamp { color: #0a8a2a; font-weight: bold; }
.draft { color: #b00020; font-weight: bold; }
</style></head><body>
<header>
<h1>Buyurtma / Заказ</h1>
<div>№ {{.OrderID}} · {{.Date}}</div>
{{if .Company}}<div>{{.Company}}</div>{{end}}
<div>Клиент: {{.ClientName}}</div>
{{if .Category}}<div class="category">Категория: {{.Category}}</div>{{end}}
{{if .Coordinates}}<div class="coords">📍 Координаты: <a href="{{.MapURL}}">{{.Coordinates}}</a></div>{{end}}
</header>
<div>Товары / Mahsulotlar</div>
<table>
<tr><th>№</th><th>Фото</th><th>ID</th><th>Наименование</th><th>Кол-во</th><th>Вес</th><th>Куб</th><th>Цена</th><th>Сумма</th></tr>
{{range .Rows}}<tr><td>{{.Number}}</td><td>{{if .ImageData}}<img src="{{.ImageData}}">{{else if .Image}}<img src="{{.Image}}">{{end}}</td><td>{{.ID}}</td><td>{{.Name}}</td><td class="num">{{.Qty}}</td><td class="num">{{.Weight}}</td><td class="num">{{.Cube}}</td><td class="num">{{.Price}}</td><td class="num">{{.Sum}}</td></tr>
{{end}}</table>
<div class="totals">
<div>Общий вес: {{.TotalWeight}} кг</div>
<div>Общий куб: {{.TotalCube}} м³</div>
<div>Итого: {{.Total}}</div>
</div>
<div class="signature">
<div>Подпись клиента / Mijoz imzosi :</div>
<div class="name">{{.ClientName}}</div>
{{if .Approved}}<div class="stamp">Утверждено{{if .Manager}} · {{.Manager}}{{end}}</div>{{else}}<div class="draft">Черновик</div>{{end}}
</div>
</body></html>`))

const pageFooter = `<div style="font-size:8px;width:100%;text-align:right;padding-right:15mm;">` +
	`Страница <span class="pageNumber"></span></div>`

// DocumentRenderer turns an order sheet into PDF bytes
type DocumentRenderer struct {
	pdf       PDFRenderer
	preloader *ImagePreloader
	company   string
	manager   string
	now       func() time.Time
}

// NewDocumentRenderer creates a renderer printing through pdf. A nil
// preloader leaves image loading to the browser.
func NewDocumentRenderer(pdf PDFRenderer, preloader *ImagePreloader, company, manager string) *DocumentRenderer {
	return &DocumentRenderer{
		pdf:       pdf,
		preloader: preloader,
		company:   company,
		manager:   manager,
		now:       time.Now,
	}
}

// Render prints the sheet
func (r *DocumentRenderer) Render(ctx context.Context, sheet fulfillment.OrderSheet) ([]byte, error) {
	if sheet.Images == nil && r.preloader != nil {
		sheet.Images = r.preloader.Preload(ctx, sheet.ImageURLs())
	}
	doc, err := r.HTML(sheet)
	if err != nil {
		return nil, err
	}
	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:       doc,
		Title:      sheet.OrderID,
		FooterHTML: pageFooter,
	})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}

// HTML renders the sheet markup without printing it
func (r *DocumentRenderer) HTML(sheet fulfillment.OrderSheet) (string, error) {
	var buf bytes.Buffer
	if err := orderSheetTemplate.Execute(&buf, r.view(sheet)); err != nil {
		return "", NewRenderError(ErrCodeTemplate, "order sheet template failed", err)
	}
	return buf.String(), nil
}

func (r *DocumentRenderer) view(sheet fulfillment.OrderSheet) sheetView {
	v := sheetView{
		Company:    r.company,
		Manager:    r.manager,
		OrderID:    sheet.OrderID,
		Date:       r.now().Format(sheetTimeLayout),
		ClientName: sheet.ClientName,
		Approved:   sheet.Approved,
		Total:      fulfillment.FormatCurrency(sheet.Total),
	}
	if sheet.Category.IsValid() {
		v.Category = sheet.Category.Name(fulfillment.LocaleRU)
	}
	if sheet.Latitude != nil && sheet.Longitude != nil {
		v.Coordinates = fmt.Sprintf("%.6f, %.6f", *sheet.Latitude, *sheet.Longitude)
		v.MapURL = fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", *sheet.Latitude, *sheet.Longitude)
	}

	totalWeight := decimal.Zero
	totalCube := decimal.Zero
	number := 1
	for _, it := range sheet.Items {
		if it.Qty <= 0 && it.Price.IsZero() {
			continue
		}
		qty := decimal.NewFromInt(it.Qty)
		weight := it.Weight.Mul(qty)
		cube := it.Cube.Mul(qty)
		totalWeight = totalWeight.Add(weight)
		totalCube = totalCube.Add(cube)

		row := sheetRow{
			Number: number,
			ID:     it.ID,
			Name:   it.Name,
			Qty:    it.Qty,
			Weight: weight.StringFixed(2),
			Cube:   cube.StringFixed(4),
			Price:  fulfillment.FormatCurrency(it.Price),
			Sum:    fulfillment.FormatCurrency(it.Subtotal()),
		}
		if src := sheet.Images[it.Image]; src != "" {
			row.ImageData = template.URL(src)
		} else {
			row.Image = it.Image
		}
		v.Rows = append(v.Rows, row)
		number++
	}
	v.TotalWeight = totalWeight.StringFixed(2)
	v.TotalCube = totalCube.StringFixed(4)
	return v
}
