package notification

import (
	"bytes"
	"html/template"
)

// emailTmpl is the HTML alternative attached to every SMTP mail. The text
// body is shown verbatim; {{.Shop}}, {{.Subject}} and {{.Body}} are
// auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;
     font-family:'Hiragino Sans','Noto Sans JP',-apple-system,'Segoe UI',Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" role="presentation"
         style="background-color:#f4f4f5;padding:32px 16px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" role="presentation"
               style="max-width:600px;width:100%;">

          <!-- Header -->
          <tr>
            <td style="background-color:#1f2937;padding:24px 32px;border-radius:8px 8px 0 0;">
              <span style="font-size:18px;font-weight:700;color:#ffffff;">{{.Shop}}</span>
            </td>
          </tr>

          <!-- Subject -->
          <tr>
            <td style="background-color:#f9fafb;padding:14px 32px;border-left:3px solid #2563eb;">
              <p style="margin:0;font-size:15px;font-weight:600;color:#111827;">{{.Subject}}</p>
            </td>
          </tr>

          <!-- Body -->
          <tr>
            <td style="background-color:#ffffff;padding:32px;border-radius:0 0 8px 8px;">
              <div style="font-size:14px;line-height:1.8;color:#374151;
                          white-space:pre-wrap;word-break:break-word;">{{.Body}}</div>
            </td>
          </tr>

        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// buildEmailHTML renders the HTML wrapper for a plain-text body.
func buildEmailHTML(shop, subject, body string) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct{ Shop, Subject, Body string }{shop, subject, body})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
