package notify

import (
	"bytes"
	"html/template"
)

type Detail struct {
	Key   string
	Value string
}

// Layout is everything an outbound mail varies on. Details render in slice
// order.
type Layout struct {
	Title       string
	Heading     string
	Intro       string
	Details     []Detail
	ActionLabel string
	ActionURL   string
	Outro       string
	Year        int
}

const layoutHTML = `<!DOCTYPE html>
<html><head><style>
body{font-family: Arial, sans-serif; color: #333;}
.container{max-width: 600px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);}
.header{background-color: #003366; color: white; padding: 10px 20px; text-align: center; border-radius: 8px 8px 0 0;}
.content{padding: 20px;}
.action{text-align: center; margin: 30px 0;}
.action a{background-color: #0d6efd; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px; font-weight: bold; display: inline-block;}
.footer{text-align: center; font-size: 12px; color: #888; margin-top: 20px;}
</style></head><body>
<div class="container">
<div class="header"><h2>{{.Title}}</h2></div>
<div class="content">
<p><b>{{.Heading}}</b></p>
<p>{{.Intro}}</p>
{{- if .Details}}
<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
{{- range .Details}}
<tr><td style="padding: 8px; border-bottom: 1px solid #ddd; background-color: #f9f9f9;"><strong>{{.Key}}:</strong></td><td style="padding: 8px; border-bottom: 1px solid #ddd;">{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .ActionURL}}
<div class="action"><a href="{{.ActionURL}}">{{.ActionLabel}}</a></div>
{{- end}}
<p>{{.Outro}}</p>
</div>
<div class="footer"><p>&copy; {{.Year}} Visitor Pass System</p></div>
</div></body></html>`

var layoutTemplate = template.Must(template.New("email").Parse(layoutHTML))

// Render is a pure function of l.
func Render(l Layout) (string, error) {
	var buf bytes.Buffer
	if err := layoutTemplate.Execute(&buf, l); err != nil {
		return "", err
	}
	return buf.String(), nil
}
