// Package widget renders the embeddable JavaScript runtime served to
// third-party pages.
package widget

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/atinyakov/GridCaptcha/internal/models"
)

// ContentType is the media type of the rendered script.
const ContentType = "application/javascript"

// CacheControl is sent with every rendered script.
const CacheControl = "public, max-age=3600"

var (
	themes = map[string]bool{"light": true, "dark": true}
	sizes  = map[string]bool{"small": true, "normal": true, "large": true}
)

//go:embed widget.js.tmpl
var source string

// Params selects the captcha and presentation of one script.
type Params struct {
	CaptchaID string
	Theme     string
	Size      string
}

// normalize checks the id and replaces unknown theme and size values with
// the defaults.
func (p Params) normalize() (Params, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(p.CaptchaID), 10, 64)
	if err != nil || id <= 0 {
		return p, fmt.Errorf("%w: captcha id must be a positive integer", models.ErrInvalidInput)
	}
	p.CaptchaID = strconv.FormatInt(id, 10)
	if !themes[p.Theme] {
		p.Theme = "light"
	}
	if !sizes[p.Size] {
		p.Size = "normal"
	}
	return p, nil
}

// Renderer fills the script template for a fixed public base URL.
type Renderer struct {
	apiBase string
	tmpl    *template.Template
}

// New parses the embedded template. baseURL is the origin the script calls
// back to, such as "https://captcha.example.com".
func New(baseURL string) (*Renderer, error) {
	tmpl, err := template.New("widget").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse widget template: %w", err)
	}
	return &Renderer{
		apiBase: strings.TrimRight(baseURL, "/") + "/api/widget",
		tmpl:    tmpl,
	}, nil
}

// Render writes the script for p to w. It returns models.ErrInvalidInput
// for a missing or non-numeric id.
func (r *Renderer) Render(w io.Writer, p Params) error {
	p, err := p.normalize()
	if err != nil {
		return err
	}
	return r.tmpl.Execute(w, struct {
		APIBase   string
		CaptchaID string
		Theme     string
		Size      string
	}{r.apiBase, p.CaptchaID, p.Theme, p.Size})
}
