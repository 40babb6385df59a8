package mailer

import (
	"fmt"
	"html"
	"regexp"
)

type Template string

const (
	TemplateNewMessage     Template = "new_message"
	TemplateNewOffer       Template = "new_offer"
	TemplateOfferAccepted  Template = "offer_accepted"
	TemplateOfferRejected  Template = "offer_rejected"
	TemplateListingExpired Template = "listing_expired"
)

// Params fills {{name}} placeholders. Values are HTML-escaped; missing keys
// render empty.
type Params map[string]string

type template struct {
	subject string
	body    string
}

const layout = `<!DOCTYPE html>
<html lang="tr">
<body style="font-family:Arial,sans-serif;background:#f5f5f5;padding:24px">
<div style="max-width:560px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
<h2 style="color:#1f2937;margin-top:0">VarsaGel</h2>
%s
<p style="margin-top:32px"><a href="{{actionUrl}}" style="background:#2563eb;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none">{{actionLabel}}</a></p>
<p style="color:#9ca3af;font-size:12px;margin-top:32px">Bu e-posta VarsaGel bildirim ayarlarınız nedeniyle gönderildi.</p>
</div>
</body>
</html>`

var templates = map[Template]template{
	TemplateNewMessage: {
		subject: "{{senderName}} size mesaj gönderdi",
		body: `<p>Merhaba {{recipientName}},</p>
<p><strong>{{senderName}}</strong> size yeni bir mesaj gönderdi:</p>
<blockquote style="border-left:3px solid #e5e7eb;padding-left:12px;color:#374151">{{messagePreview}}</blockquote>`,
	},
	TemplateNewOffer: {
		subject: "\"{{listingTitle}}\" ilanınıza yeni teklif",
		body: `<p>Merhaba {{recipientName}},</p>
<p><strong>{{offererName}}</strong> "{{listingTitle}}" ilanınıza <strong>{{amount}} TL</strong> teklif verdi.</p>
<p>{{offerMessage}}</p>`,
	},
	TemplateOfferAccepted: {
		subject: "Teklifiniz kabul edildi",
		body: `<p>Merhaba {{recipientName}},</p>
<p>"{{listingTitle}}" ilanına verdiğiniz <strong>{{amount}} TL</strong> tutarındaki teklif kabul edildi.</p>`,
	},
	TemplateOfferRejected: {
		subject: "Teklifiniz reddedildi",
		body: `<p>Merhaba {{recipientName}},</p>
<p>"{{listingTitle}}" ilanına verdiğiniz <strong>{{amount}} TL</strong> tutarındaki teklif reddedildi.</p>
<p>Gerekçe: {{reason}}</p>`,
	},
	TemplateListingExpired: {
		subject: "\"{{listingTitle}}\" ilanınızın süresi doldu",
		body: `<p>Merhaba {{recipientName}},</p>
<p>#{{listingNumber}} numaralı "{{listingTitle}}" ilanınızın yayın süresi doldu.</p>`,
	},
}

var placeholder = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Render is pure substitution over a fixed template table.
func Render(t Template, p Params) (subject, body string, err error) {
	tpl, ok := templates[t]
	if !ok {
		return "", "", fmt.Errorf("mailer: unknown template %q", t)
	}
	if _, ok := p["actionLabel"]; !ok {
		p = withDefault(p, "actionLabel", "VarsaGel'de görüntüle")
	}
	subject = substitute(tpl.subject, p, false)
	body = substitute(fmt.Sprintf(layout, tpl.body), p, true)
	return subject, body, nil
}

func substitute(s string, p Params, escape bool) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		v := p[placeholder.FindStringSubmatch(m)[1]]
		if escape {
			return html.EscapeString(v)
		}
		return v
	})
}

func withDefault(p Params, key, value string) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[key] = value
	return out
}
