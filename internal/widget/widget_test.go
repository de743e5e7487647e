package widget

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/atinyakov/GridCaptcha/internal/models"
)

func render(t *testing.T, base string, p Params) string {
	t.Helper()
	r, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestRender_Substitutes(t *testing.T) {
	out := render(t, "https://captcha.example/", Params{CaptchaID: "42", Theme: "dark", Size: "large"})

	for _, want := range []string{
		`var API_BASE = "https://captcha.example/api/widget";`,
		`var CAPTCHA_ID = "42";`,
		`var THEME = "dark";`,
		`var SIZE = "large";`,
		"window.ArtCaptcha.init = function",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestRender_NoGlobalInstance(t *testing.T) {
	out := render(t, "http://localhost:8080", Params{CaptchaID: "1"})
	if strings.Contains(out, "artCaptchaInstance") {
		t.Error("script must not publish a global widget instance")
	}
	if !strings.Contains(out, "return handle(w);") {
		t.Error("init must return a per-call handle")
	}
}

func TestRender_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		theme string
		size  string
	}{
		{"empty", "", ""},
		{"unknown", "neon", "huge"},
		{"injection", `light";alert(1);//`, `"+x+"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, "http://localhost:8080", Params{CaptchaID: "7", Theme: tt.theme, Size: tt.size})
			if !strings.Contains(out, `var THEME = "light";`) || !strings.Contains(out, `var SIZE = "normal";`) {
				t.Error("expected fallback to light/normal")
			}
		})
	}
}

func TestRender_CanonicalID(t *testing.T) {
	out := render(t, "http://localhost:8080", Params{CaptchaID: " 007 "})
	if !strings.Contains(out, `var CAPTCHA_ID = "7";`) {
		t.Error("expected id to be rendered canonically")
	}
}

func TestRender_InvalidID(t *testing.T) {
	r, err := New("http://localhost:8080")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, id := range []string{"", "abc", "0", "-3", `1";alert(1)//`} {
		var buf bytes.Buffer
		if err := r.Render(&buf, Params{CaptchaID: id}); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("Render(id=%q) error = %v; want ErrInvalidInput", id, err)
		}
		if buf.Len() != 0 {
			t.Errorf("Render(id=%q) wrote output on error", id)
		}
	}
}

func TestRender_EscapesBaseURL(t *testing.T) {
	out := render(t, `http://evil"+alert(1)+"`, Params{CaptchaID: "1"})
	if strings.Contains(out, `evil"+alert`) {
		t.Error("base URL must be escaped inside the script")
	}
}
