package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/equipment-registry/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderQRBase64(t *testing.T) {
	encoded, err := RenderQRBase64("http://localhost:8080/scan/abc")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.HasPrefix(raw, pngMagic) {
		t.Fatalf("qr image should be png")
	}
}

func TestBuildLabelSheet(t *testing.T) {
	rows := make([]models.Equipment, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, models.Equipment{AccessToken: "tok", ProductCode: "SCB", Model: "GroupA", UnitNumber: "U"})
	}
	labels := LabelsForEquipment(rows, func(token string) string { return BuildScanURL("http://localhost", token) })
	if labels[0].ScanURL != "http://localhost/scan/tok" {
		t.Fatalf("unexpected label url: %s", labels[0].ScanURL)
	}
	pdf, err := BuildLabelSheet(labels, DefaultLabelLayout())
	if err != nil {
		t.Fatalf("build label sheet failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output should be a pdf")
	}

	if _, err := BuildLabelSheet(nil, DefaultLabelLayout()); !errors.Is(err, ErrBulkCodesRequired) {
		t.Fatalf("empty labels want ErrBulkCodesRequired got %v", err)
	}
}
