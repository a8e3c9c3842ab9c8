package templates

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/equipment-registry/internal/i18n"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/service"
)

func render(t *testing.T, name string, page Page) string {
	t.Helper()
	r, err := Renderer()
	if err != nil {
		t.Fatalf("parse templates failed: %v", err)
	}
	w := httptest.NewRecorder()
	if err := r.Instance(name, page).Render(w); err != nil {
		t.Fatalf("render %s failed: %v", name, err)
	}
	return w.Body.String()
}

func TestRenderScanForm(t *testing.T) {
	body := render(t, PageScan, Page{
		Locale:     "en",
		T:          i18n.Messages("en"),
		Equipment:  &models.Equipment{ID: 7, Model: "GroupA", UnitNumber: "U1"},
		DealerJSON: `{"9000400467":"SMITHBRIDGE GUAM INC."}`,
		Today:      "2025-06-15",
	})
	if !strings.Contains(body, `name="equipment_id" value="7"`) {
		t.Fatalf("form should carry equipment id")
	}
	if !strings.Contains(body, "Register Installation Date") {
		t.Fatalf("form should use english messages")
	}
}

func TestRenderVerification(t *testing.T) {
	installed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lat, lon := 37.5665, 126.978
	body := render(t, PageVerification, Page{
		Locale: "ko",
		T:      i18n.Messages("ko"),
		Equipment: &models.Equipment{
			Model:                 "GroupA",
			UnitNumber:            "U1",
			InstallationDate:      &installed,
			RegistrationLatitude:  &lat,
			RegistrationLongitude: &lon,
		},
		DealerName: "SMITHBRIDGE GUAM INC.",
	})
	if !strings.Contains(body, "2025-06-01") || !strings.Contains(body, "SMITHBRIDGE GUAM INC.") {
		t.Fatalf("verification page missing registration info")
	}
	if !strings.Contains(body, "37.566500,126.978000") {
		t.Fatalf("verification page missing map link")
	}
	if !strings.Contains(body, `<html lang="ko">`) {
		t.Fatalf("verification page should use resolved locale")
	}
}

func TestRenderDashboardAndError(t *testing.T) {
	report := service.BuildReport(nil, "")
	body := render(t, PageDashboard, Page{
		Locale: "en",
		T:      i18n.Messages("en"),
		Data:   &service.DashboardData{Report: report},
	})
	if !strings.Contains(body, "Installation Dashboard") {
		t.Fatalf("dashboard title missing")
	}

	body = render(t, PageError, Page{Locale: "en", T: i18n.Messages("en"), Message: "Equipment not found.", RequestID: "req-1"})
	if !strings.Contains(body, "Equipment not found.") || !strings.Contains(body, "req-1") {
		t.Fatalf("error page missing message")
	}
}
