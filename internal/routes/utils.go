package routes

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"employee-timesheet/internal/timesheet"
	"employee-timesheet/web"
)

// sriCache caches computed SRI integrity strings keyed by the src path.
var sriCache sync.Map // map[string]string

// staticFS is where /static/ assets are read from.
var staticFS fs.FS = web.Static

// computeLocalSRI computes the sha384 SRI for an embedded asset under /static/.
func computeLocalSRI(src string) (string, error) {
	if !strings.HasPrefix(src, "/static/") {
		return "", nil
	}

	data, err := fs.ReadFile(staticFS, strings.TrimPrefix(src, "/"))
	if err != nil {
		return "", err
	}

	sum := sha512.Sum384(data)
	return "sha384-" + base64.StdEncoding.EncodeToString(sum[:]), nil
}

func integrity(src string) string {
	if v, ok := sriCache.Load(src); ok {
		return v.(string)
	}
	sri, err := computeLocalSRI(src)
	if err != nil || sri == "" {
		return ""
	}
	sriCache.Store(src, sri)
	return sri
}

func integrityAttrs(src string) string {
	sri := integrity(src)
	if sri == "" {
		return ""
	}
	return fmt.Sprintf(" integrity=\"%s\" crossorigin=\"anonymous\"", html.EscapeString(sri))
}

// ScriptTag returns a safe HTML script tag for use in html/templates.
// It accepts the script src and automatically calculates and caches the
// SRI integrity hash for embedded assets under /static/.
func ScriptTag(src string) template.HTML {
	return scriptTag("", src)
}

// scriptTag serves src below the base path while hashing the asset itself.
func scriptTag(base, src string) template.HTML {
	return template.HTML(fmt.Sprintf("<script src=\"%s\"%s></script>", html.EscapeString(base+src), integrityAttrs(src)))
}

// StyleTag is the stylesheet counterpart of ScriptTag.
func StyleTag(href string) template.HTML {
	return styleTag("", href)
}

func styleTag(base, href string) template.HTML {
	return template.HTML(fmt.Sprintf("<link rel=\"stylesheet\" href=\"%s\"%s>", html.EscapeString(base+href), integrityAttrs(href)))
}

// TemplateFuncs returns a FuncMap with template helpers for routes templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"script_tag": scriptTag,
		"style_tag":  styleTag,
		"hours": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"date": func(t time.Time) string {
			return t.Format(timesheet.DateLayout)
		},
		"datetime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},
		"weekday": func(t time.Time) string {
			return t.Weekday().String()
		},
	}
}
