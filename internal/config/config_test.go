package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeSecretKey(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)

	key, err := DecodeSecretKey(hexKey)
	if err != nil {
		t.Fatalf("DecodeSecretKey(hex): %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32 decoded bytes, got %d", len(key))
	}
	if key[0] != 0xab {
		t.Errorf("key[0] = %#x, want 0xab", key[0])
	}

	raw, err := DecodeSecretKey("just-a-passphrase")
	if err != nil {
		t.Fatalf("DecodeSecretKey(raw): %v", err)
	}
	if !bytes.Equal(raw, []byte("just-a-passphrase")) {
		t.Errorf("raw key = %q", raw)
	}

	// 64 characters that are not hex are used verbatim.
	notHex := strings.Repeat("zz", 32)
	key, err = DecodeSecretKey(notHex)
	if err != nil {
		t.Fatalf("DecodeSecretKey(not hex): %v", err)
	}
	if string(key) != notHex {
		t.Errorf("expected verbatim key for non-hex input")
	}
}

func TestDecodeSecretKeyMissing(t *testing.T) {
	for _, v := range []string{"", "   "} {
		if _, err := DecodeSecretKey(v); !errors.Is(err, ErrMissingSecretKey) {
			t.Errorf("DecodeSecretKey(%q): expected ErrMissingSecretKey, got %v", v, err)
		}
	}
}

func TestPostgresURL(t *testing.T) {
	got := PostgresURL("hutch", "p@ss", "db", "", "bridge")
	want := "postgres://hutch:p%40ss@db:5432/bridge"
	if got != want {
		t.Errorf("PostgresURL = %q, want %q", got, want)
	}
	if PostgresURL("u", "p", "", "5432", "d") != "" {
		t.Error("expected empty URL when host is empty")
	}
}

func TestMaskURL(t *testing.T) {
	got := MaskURL("postgres://hutch:secret@db:5432/bridge")
	if strings.Contains(got, "secret") {
		t.Errorf("password leaked in %q", got)
	}
	if MaskURL("") != "" {
		t.Error("expected empty string to stay empty")
	}
}

func TestLoadYAMLConfigExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("HUTCH_TEST_UPSTREAM", "http://mediamtx:8889")

	path := filepath.Join(t.TempDir(), "hutch.yaml")
	content := `
server:
  port: 9090
webrtc:
  upstream_url: ${HUTCH_TEST_UPSTREAM}
reconcile:
  reject_out_of_order: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.WebRTC.UpstreamURL != "http://mediamtx:8889" {
		t.Errorf("upstream = %q", cfg.WebRTC.UpstreamURL)
	}
	if !cfg.Reconcile.RejectOutOfOrder {
		t.Error("expected reject_out_of_order to be true")
	}
	if cfg.Auth.SessionTTL != "2h" {
		t.Errorf("session_ttl = %q, want default 2h", cfg.Auth.SessionTTL)
	}
	if cfg.Reconcile.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want default 3", cfg.Reconcile.MaxRetries)
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hutch.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.Logging.Level != "info" {
		t.Errorf("unexpected defaults: %+v", cfg.Server)
	}
}

func TestMaskedHidesSecrets(t *testing.T) {
	cfg := DefaultYAMLConfig()
	cfg.Auth.SecretKey = "top-secret"
	cfg.Database.URL = "postgres://u:pw@db/hutch"

	masked := cfg.Masked()
	if masked.Auth.SecretKey == "top-secret" {
		t.Error("secret key not masked")
	}
	if strings.Contains(masked.Database.URL, "pw@") {
		t.Errorf("database password not masked: %q", masked.Database.URL)
	}
	if cfg.Auth.SecretKey != "top-secret" {
		t.Error("Masked must not modify the receiver")
	}
}
