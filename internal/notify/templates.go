package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/pkg/money"
)

// Kind names the e-mail a Message renders to.
type Kind string

const KindOrderConfirmation Kind = "order_confirmation"

var funcs = template.FuncMap{
	"money": money.Format,
}

type templatePair struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[Kind]templatePair{
	KindOrderConfirmation: {
		subject: template.Must(template.New("subject").Funcs(funcs).Parse(
			`Order confirmed: {{.Code}}`)),
		body: template.Must(template.New("body").Funcs(funcs).Parse(
			`Hi {{.Name}},

Thanks for your order. Your confirmation code is {{.Code}}.
{{with .Order}}
{{range .Lines}}{{.Quantity}} x {{.Product.Name}}  {{money .Subtotal}}
{{end}}
Total: {{money .Total}}
{{- if .Customer.Address}}
Delivering to: {{.Customer.Address}}{{end}}
{{- if .Customer.Size}}
Size: {{.Customer.Size}}{{end}}
{{end}}
Payment reference: {{.Reference}}
`)),
	},
}

// Message is one e-mail to deliver.
type Message struct {
	Kind      Kind
	To        string
	Name      string
	Code      string
	Reference string
	Order     *models.OrderSummary
}

// Render returns the subject and body of msg.
func Render(msg Message) (subject, body string, err error) {
	tp, ok := templates[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown message kind %q", msg.Kind)
	}

	var buf bytes.Buffer
	if err := tp.subject.Execute(&buf, msg); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	subject = buf.String()

	buf.Reset()
	if err := tp.body.Execute(&buf, msg); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return subject, buf.String(), nil
}
