package config

import "testing"

func TestRegistrationNormalize(t *testing.T) {
	cases := []struct {
		name    string
		in      RegistrationConfig
		wantKey string
		wantRef string
	}{
		{name: "defaults", in: RegistrationConfig{}, wantKey: NaturalKeyProductCode, wantRef: LeadTimeFromCreatedAt},
		{name: "model unit", in: RegistrationConfig{NaturalKey: " MODEL_UNIT ", LeadTimeReference: "shipment_date"}, wantKey: NaturalKeyModelUnit, wantRef: LeadTimeFromShipmentDate},
		{name: "unknown values", in: RegistrationConfig{NaturalKey: "serial", LeadTimeReference: "updated_at"}, wantKey: NaturalKeyProductCode, wantRef: LeadTimeFromCreatedAt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalize()
			if got.NaturalKey != tc.wantKey {
				t.Fatalf("natural key want %s got %s", tc.wantKey, got.NaturalKey)
			}
			if got.LeadTimeReference != tc.wantRef {
				t.Fatalf("lead time reference want %s got %s", tc.wantRef, got.LeadTimeReference)
			}
		})
	}
}

func TestERPConfigured(t *testing.T) {
	cfg := ERPConfig{Enabled: true, DBHost: "erp.local", DBName: "UNIERP", DBUser: "reader"}
	if !cfg.Configured() {
		t.Fatalf("complete erp config should be configured")
	}
	cfg.Enabled = false
	if cfg.Configured() {
		t.Fatalf("disabled erp config should not be configured")
	}
	cfg = ERPConfig{Enabled: true, DBHost: "erp.local"}
	if cfg.Configured() {
		t.Fatalf("incomplete erp config should not be configured")
	}
}
