package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name   string `json:"Name"`
	Email  string `json:"Email"`
	Type   string `json:"Type"`
	Locale string `json:"Locale"`

	// Company info
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	AppName        string `json:"AppName"`
	LogoURL        string `json:"LogoURL"`
	SupportURL     string `json:"SupportURL"`

	Code string `json:"Code"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		if reflect.DeepEqual(value, reflect.Zero(rv.Type()).Interface()) {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"now":     func() time.Time { return time.Now().UTC() },
		"upper":   strings.ToUpper,
		"default": defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())

	// every embedded file, parsed once; templates are named by file name
	htmlSet = htmpl.Must(htmpl.New("html").Funcs(htmlFuncMap).ParseFS(FS, "*.html.tmpl"))
	textSet = texttpl.Must(texttpl.New("text").Funcs(textFuncMap).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl"))
)

// Template names
const (
	VerifyCode = "verify_code"
)

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
// A file named <name>.<lang>.<part>.tmpl replaces the default part when the
// data carries a Locale whose language is <lang>.
func Render(name string, data any) (subject string, text string, html string, err error) {
	lang := language(localeOf(data))
	if subject, err = execText(fileFor(name, lang, "subject", textExists), data); err != nil {
		return "", "", "", err
	}
	if text, err = execText(fileFor(name, lang, "text", textExists), data); err != nil {
		return "", "", "", err
	}
	if html, err = execHTML(fileFor(name, lang, "html", htmlExists), data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}

func textExists(file string) bool { return textSet.Lookup(file) != nil }
func htmlExists(file string) bool { return htmlSet.Lookup(file) != nil }

func fileFor(name, lang, part string, exists func(string) bool) string {
	if lang != "" {
		if f := name + "." + lang + "." + part + ".tmpl"; exists(f) {
			return f
		}
	}
	return name + "." + part + ".tmpl"
}

func execText(file string, data any) (string, error) {
	t := textSet.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("template %q not found", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

func execHTML(file string, data any) (string, error) {
	t := htmlSet.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("template %q not found", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

// localeOf reads Locale from EmailData or from its map form in a queued job.
func localeOf(data any) string {
	switch d := data.(type) {
	case EmailData:
		return d.Locale
	case *EmailData:
		if d != nil {
			return d.Locale
		}
	case map[string]any:
		s, _ := d["Locale"].(string)
		return s
	}
	return ""
}

// language keeps the primary subtag: "uk-UA" and "UK_ua" both give "uk".
func language(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}
