package service

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/equipment-registry/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

const (
	qrImageSize      = 512
	labelQRImageSize = 256
)

// RenderQRPNG 生成二维码 PNG
func RenderQRPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = qrImageSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// RenderQRBase64 生成 base64 编码的二维码 PNG
func RenderQRBase64(content string) (string, error) {
	png, err := RenderQRPNG(content, qrImageSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// LabelLayout A4 标签纸排版
type LabelLayout struct {
	Cols       int
	Rows       int
	MarginTop  float64
	MarginLeft float64
	GapX       float64
	GapY       float64
}

// DefaultLabelLayout 3 x 8 标签纸
func DefaultLabelLayout() LabelLayout {
	return LabelLayout{Cols: 3, Rows: 8, MarginTop: 10, MarginLeft: 8, GapX: 3, GapY: 2}
}

// Label 单张标签
type Label struct {
	ScanURL     string
	ProductCode string
	Model       string
	UnitNumber  string
}

// LabelsForEquipment 为设备生成标签内容
func LabelsForEquipment(rows []models.Equipment, scanURL func(token string) string) []Label {
	labels := make([]Label, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, Label{
			ScanURL:     scanURL(row.AccessToken),
			ProductCode: row.ProductCode,
			Model:       row.Model,
			UnitNumber:  row.UnitNumber,
		})
	}
	return labels
}

// BuildLabelSheet 生成带二维码的 A4 标签 PDF
func BuildLabelSheet(labels []Label, layout LabelLayout) ([]byte, error) {
	if len(labels) == 0 {
		return nil, ErrBulkCodesRequired
	}
	if layout.Cols <= 0 || layout.Rows <= 0 {
		layout = DefaultLabelLayout()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 8)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, pageHeight := pdf.GetPageSize()
	labelW := (pageWidth - layout.MarginLeft*2 - float64(layout.Cols-1)*layout.GapX) / float64(layout.Cols)
	labelH := (pageHeight - layout.MarginTop*2 - float64(layout.Rows-1)*layout.GapY) / float64(layout.Rows)
	perPage := layout.Cols * layout.Rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, label := range labels {
		if i%perPage == 0 {
			pdf.AddPage()
		}
		index := i % perPage
		x := layout.MarginLeft + float64(index%layout.Cols)*(labelW+layout.GapX)
		y := layout.MarginTop + float64(index/layout.Cols)*(labelH+layout.GapY)

		png, err := RenderQRPNG(label.ScanURL, labelQRImageSize)
		if err != nil {
			return nil, err
		}
		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(png))

		qrSize := labelH - 2
		if qrSize > labelW/2 {
			qrSize = labelW / 2
		}
		pdf.ImageOptions(imgName, x+1, y+(labelH-qrSize)/2, qrSize, qrSize, false, imgOptions, 0, "")

		textX := x + qrSize + 2
		textW := labelW - qrSize - 3
		pdf.SetXY(textX, y+labelH/2-7)
		pdf.SetFontSize(8)
		pdf.CellFormat(textW, 4, tr(label.ProductCode), "", 2, "L", false, 0, "")
		pdf.SetX(textX)
		pdf.SetFontSize(7)
		pdf.CellFormat(textW, 4, tr(label.Model), "", 2, "L", false, 0, "")
		pdf.SetX(textX)
		pdf.CellFormat(textW, 4, tr(label.UnitNumber), "", 2, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
