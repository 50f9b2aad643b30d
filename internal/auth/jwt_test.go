package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GatewayAdmin/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var testNow = time.Unix(1730000000, 0)

func hsConfig() config.JWTConfig {
	return config.JWTConfig{
		ValidationType: "HS256",
		Issuer:         "auth-service",
		Audience:       "gateway-admin",
		HMACSecret:     "super-secret",
	}
}

func newValidator(t *testing.T, cfg config.JWTConfig) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.clockFunc = func() time.Time { return testNow }
	return v
}

func validClaims(cfg config.JWTConfig) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": testNow.Unix() - 10,
		"nbf": testNow.Unix() - 5,
		"exp": testNow.Unix() + 30,
		"sub": "user-1",
	}
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func publicPEM(t *testing.T, pub any) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestHS256ValidateToken(t *testing.T) {
	cfg := hsConfig()
	v := newValidator(t, cfg)

	claims, err := v.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte(cfg.HMACSecret), validClaims(cfg)))
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims["sub"] != "user-1" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := hsConfig()
	v := newValidator(t, cfg)
	secret := []byte(cfg.HMACSecret)

	cases := map[string]func(jwt.MapClaims){
		"expired":      func(c jwt.MapClaims) { c["exp"] = testNow.Unix() - 1 },
		"not yet":      func(c jwt.MapClaims) { c["nbf"] = testNow.Unix() + 60 },
		"wrong issuer": func(c jwt.MapClaims) { c["iss"] = "someone-else" },
		"wrong aud":    func(c jwt.MapClaims) { c["aud"] = []string{"other"} },
		"missing exp":  func(c jwt.MapClaims) { delete(c, "exp") },
		"missing nbf":  func(c jwt.MapClaims) { delete(c, "nbf") },
		"missing iat":  func(c jwt.MapClaims) { delete(c, "iat") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validClaims(cfg)
			mutate(c)
			if _, err := v.ValidateToken(sign(t, jwt.SigningMethodHS256, secret, c)); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}

	if _, err := v.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims(cfg))); err == nil {
		t.Fatalf("expected bad signature to be rejected")
	}
}

func TestClockSkewAllowsRecentExpiry(t *testing.T) {
	cfg := hsConfig()
	cfg.ClockSkewSec = 60
	v := newValidator(t, cfg)

	c := validClaims(cfg)
	c["exp"] = testNow.Unix() - 30
	if _, err := v.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte(cfg.HMACSecret), c)); err != nil {
		t.Fatalf("expected skew to accept token: %v", err)
	}
}

func TestRS256ValidateToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	cfg := config.JWTConfig{
		ValidationType: "RS256",
		Issuer:         "auth-service",
		Audience:       "gateway-admin",
		PublicKeyPEM:   publicPEM(t, &priv.PublicKey),
	}
	v := newValidator(t, cfg)

	if _, err := v.ValidateToken(sign(t, jwt.SigningMethodRS256, priv, validClaims(cfg))); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	// an HS256 token signed with the public key bytes must not pass
	forged := sign(t, jwt.SigningMethodHS256, []byte(cfg.PublicKeyPEM), validClaims(cfg))
	if _, err := v.ValidateToken(forged); err == nil {
		t.Fatalf("expected algorithm confusion to be rejected")
	}
}

func TestES256ValidateToken(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	cfg := config.JWTConfig{
		ValidationType: "ES256",
		Issuer:         "auth-service",
		Audience:       "gateway-admin",
		PublicKeyPEM:   publicPEM(t, &priv.PublicKey),
	}
	v := newValidator(t, cfg)

	if _, err := v.ValidateToken(sign(t, jwt.SigningMethodES256, priv, validClaims(cfg))); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
}

func TestNewJWTValidatorConfigErrors(t *testing.T) {
	for name, cfg := range map[string]config.JWTConfig{
		"no issuer":   {ValidationType: "HS256", Audience: "a", HMACSecret: "s"},
		"no audience": {ValidationType: "HS256", Issuer: "i", HMACSecret: "s"},
		"no secret":   {ValidationType: "HS256", Issuer: "i", Audience: "a"},
		"no key":      {ValidationType: "RS256", Issuer: "i", Audience: "a"},
		"bad alg":     {ValidationType: "none", Issuer: "i", Audience: "a"},
	} {
		if _, err := NewJWTValidator(cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMiddleware(t *testing.T) {
	cfg := hsConfig()
	v := newValidator(t, cfg)

	var gotSub string
	h := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/route", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/route", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(cfg.HMACSecret), validClaims(cfg)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", rec.Code)
	}
	if gotSub != "user-1" {
		t.Fatalf("unexpected subject %q", gotSub)
	}

	req = httptest.NewRequest(http.MethodOptions, "/route", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight to pass, got %d", rec.Code)
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/route", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
