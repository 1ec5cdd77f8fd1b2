// Package payment renders the hosted payment page and decodes what it posts back.
package payment

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

const notProvided = "Not provided"

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

// PageData is everything the payment page needs to open the gateway widget.
type PageData struct {
	PublicKey  string
	ScriptURL  string
	Email      string
	Amount     int64
	Currency   string
	Reference  string
	FirstName  string
	LastName   string
	Phone      string
	MessageURL string
}

// RenderPage writes the payment page for data to w.
func RenderPage(w io.Writer, data PageData) error {
	if strings.TrimSpace(data.Phone) == "" {
		data.Phone = notProvided
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render payment page: %w", err)
	}
	return nil
}
