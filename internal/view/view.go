// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templates embed.FS

var pages = []string{
	"apology", "buy", "history", "index", "login", "quote", "quoted", "register", "sell",
}

// USD formats an amount as US dollars, e.g. $1,234.56.
func USD(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// Page is the data every template receives.
type Page struct {
	LoggedIn bool
	Data     any
}

// Renderer holds the parsed page set.
type Renderer struct {
	pages map[string]*template.Template
	log   logrus.FieldLogger
}

// New parses the embedded templates.
func New(log logrus.FieldLogger) (*Renderer, error) {
	funcs := template.FuncMap{"usd": USD}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), log: log}
	for _, name := range pages {
		tpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templates, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render writes the named page with the given status.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	tpl, ok := r.pages[name]
	if !ok {
		r.log.WithField("template", name).Error("unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		r.log.WithError(err).WithField("template", name).Error("render template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Apology is the data for the error page.
type Apology struct {
	Status  int
	Message string
}

// Apology renders the error page with a user-facing message.
func (r *Renderer) Apology(w http.ResponseWriter, loggedIn bool, status int, message string) {
	r.Render(w, status, "apology", Page{LoggedIn: loggedIn, Data: Apology{Status: status, Message: message}})
}
