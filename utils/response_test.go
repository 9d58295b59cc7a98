package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kataras/iris/v12"
)

func TestJSONPageMeta(t *testing.T) {
	app := iris.New()
	app.Get("/page", func(ctx iris.Context) {
		JSONPage(ctx, []string{"a", "b"}, 2, 20, 41)
	})
	if err := app.Build(); err != nil {
		t.Fatalf("building app: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}

	var body struct {
		Data []string `json:"data"`
		Meta PageMeta `json:"meta"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(body.Data) != 2 {
		t.Errorf("data len = %d, want 2", len(body.Data))
	}
	if body.Meta.Page != 2 || body.Meta.PerPage != 20 || body.Meta.Total != 41 {
		t.Errorf("meta = %+v", body.Meta)
	}
	// 41 rows at 20 per page is a 3-page set
	if body.Meta.Pages != 3 {
		t.Errorf("pages = %d, want 3", body.Meta.Pages)
	}
}
