package routes

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"staynest-server/pricing"
	"staynest-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// buildCompareTestApp creates a minimal Iris app with the stateless pricing
// comparison route and a JWT verifier
func buildCompareTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	imports := app.Party("/api/import", accessTokenVerifierMiddleware)
	{
		imports.Post("/compare", ComparePricing)
	}
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

// signCompareTestToken returns a signed JWT for a host
func signCompareTestToken() string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: 1, Role: "user"})
	return string(token)
}

func TestComparePricingRequiresToken(t *testing.T) {
	app := buildCompareTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/import/compare",
		strings.NewReader(`{"referencePrice":1000,"discountPercent":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}
}

func TestComparePricingDerivation(t *testing.T) {
	app := buildCompareTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/import/compare",
		strings.NewReader(`{"referencePrice":1000,"discountPercent":3}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signCompareTestToken())
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got pricing.Comparison
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	want := pricing.Compare(1000, 3)
	if math.Abs(got.HostPrice-want.HostPrice) > 0.01 {
		t.Errorf("hostPrice = %v, want %v", got.HostPrice, want.HostPrice)
	}
	if got.GuestPrice != want.GuestPrice {
		t.Errorf("guestPrice = %v, want %v", got.GuestPrice, want.GuestPrice)
	}
	if math.Abs(got.CompetitorTakeHome-want.CompetitorTakeHome) > 0.01 {
		t.Errorf("competitorTakeHome = %v, want %v", got.CompetitorTakeHome, want.CompetitorTakeHome)
	}
}

func TestComparePricingRejectsOutOfRangeDiscount(t *testing.T) {
	app := buildCompareTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/import/compare",
		strings.NewReader(`{"referencePrice":1000,"discountPercent":45}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signCompareTestToken())
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for discount above the cap, got %d", resp.Code)
	}
}

func TestParseScrapedPrice(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"₹1,000 night", 1000, true},
		{"$85.50 per night", 85.50, true},
		{"1200", 1200, true},
		{"price on request", 0, false},
		{"₹0 night", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseScrapedPrice(tc.raw)
		if tc.ok && err != nil {
			t.Errorf("ParseScrapedPrice(%q) error: %v", tc.raw, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseScrapedPrice(%q) = %v, want error", tc.raw, got)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("ParseScrapedPrice(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
