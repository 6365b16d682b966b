package email

import (
	"bytes"
	"html/template"
	"io"
	"strings"
	texttemplate "text/template"
)

type passcodeView struct {
	Name     string
	Passcode string
	Minutes  int
}

type welcomeView struct {
	Name   string
	AppURL string
}

var (
	passcodeText = texttemplate.Must(texttemplate.New("passcode_text").Parse(
		`Hi {{.Name}},

Your verification code is: {{.Passcode}}

It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.
`))

	passcodeHTML = template.Must(template.New("passcode_html").Parse(`<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <h2>Your verification code</h2>
    <p>Hi {{.Name}},</p>
    <p style="font-size:28px; letter-spacing:6px; font-weight:bold;">{{.Passcode}}</p>
    <p style="color:#555; font-size:12px;">
      This code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.
    </p>
  </body>
</html>`))

	welcomeText = texttemplate.Must(texttemplate.New("welcome_text").Parse(
		`Hi {{.Name}},

Your account is verified. Start writing notes{{if .AppURL}} at {{.AppURL}}{{end}}.
`))

	welcomeHTML = template.Must(template.New("welcome_html").Parse(`<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <h2>Welcome, {{.Name}}!</h2>
    <p>Your account is verified.</p>
    {{if .AppURL}}<p>
      <a href="{{.AppURL}}" style="display:inline-block; padding:10px 14px; text-decoration:none; border-radius:6px; background:#111; color:#fff;">
        Open notes
      </a>
    </p>{{end}}
  </body>
</html>`))
)

type templateExecutor interface {
	Execute(wr io.Writer, data any) error
}

func render(tmpl templateExecutor, data any) (string, error) {
	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderPasscode(name, passcode string, minutes int) (text, html string, err error) {
	v := passcodeView{Name: displayName(name), Passcode: passcode, Minutes: minutes}
	if text, err = render(passcodeText, v); err != nil {
		return "", "", err
	}
	if html, err = render(passcodeHTML, v); err != nil {
		return "", "", err
	}
	return text, html, nil
}

func renderWelcome(name, appURL string) (text, html string, err error) {
	v := welcomeView{Name: displayName(name), AppURL: appURL}
	if text, err = render(welcomeText, v); err != nil {
		return "", "", err
	}
	if html, err = render(welcomeHTML, v); err != nil {
		return "", "", err
	}
	return text, html, nil
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return name
}
