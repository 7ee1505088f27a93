package config

import "testing"

func TestParseFeeTable(t *testing.T) {
	fees, err := parseFeeTable("plumbing=35000, Electrical=40000,general=30000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fees["electrical"] != 40000 {
		t.Fatalf("expected electrical fee 40000, got %d", fees["electrical"])
	}

	if _, err := parseFeeTable("plumbing"); err == nil {
		t.Fatalf("expected error for entry without amount")
	}
	if _, err := parseFeeTable("plumbing=-1"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestCallOutFeeFallsBackToGeneral(t *testing.T) {
	cfg := &Config{CallOutFees: map[string]int64{"general": 30000, "plumbing": 35000}}

	if got := cfg.GetCallOutFeeCents("Plumbing"); got != 35000 {
		t.Fatalf("expected plumbing fee, got %d", got)
	}
	if got := cfg.GetCallOutFeeCents("roofing"); got != 30000 {
		t.Fatalf("expected general fallback, got %d", got)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fixmate")
	t.Setenv("JWT_ACCESS_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_ACCESS_SECRET is missing")
	}

	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("LINK_SIGNING_SECRET", "links")
	t.Setenv("PAYMENT_SIGNING_KEY", "pay")
	t.Setenv("JOB_DISPATCH_MODE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown dispatch mode")
	}

	t.Setenv("JOB_DISPATCH_MODE", "after_payment")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetDispatchMode() != DispatchAfterPayment {
		t.Fatalf("expected after_payment, got %q", cfg.GetDispatchMode())
	}
}
