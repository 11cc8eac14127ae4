package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/AlexTLDR/giftregistry/internal/i18n"
)

type row struct {
	label string
	value string
}

// emailLayout wraps body rows in the shared email chrome. Every value is
// escaped; only link is emitted as an attribute, and only when it is http(s).
func emailLayout(lang i18n.Language, heading string, rows []row, link, linkLabel, note string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"></head>`)
		b.WriteString(`<body style="font-family: Arial, sans-serif; background-color: #f9fafb; padding: 20px;">`)
		b.WriteString(`<div style="max-width: 600px; margin: 0 auto; background-color: white; border-radius: 8px; padding: 30px;">`)
		fmt.Fprintf(&b, `<h1 style="color: #db2777;">%s</h1>`, templ.EscapeString(heading))
		b.WriteString(`<div style="background-color: #fce7f3; padding: 15px; border-radius: 5px;">`)
		for _, r := range rows {
			if r.value == "" {
				continue
			}
			fmt.Fprintf(&b, `<p><strong>%s:</strong> %s</p>`, templ.EscapeString(r.label), templ.EscapeString(r.value))
		}
		b.WriteString(`</div>`)
		if link != "" {
			if safe := templ.URL(link); safe != templ.FailedSanitizationURL {
				fmt.Fprintf(&b, `<p><a href="%s" style="color: #db2777;">%s</a></p>`,
					templ.EscapeString(string(safe)), templ.EscapeString(linkLabel))
			}
		}
		if note != "" {
			fmt.Fprintf(&b, `<p>%s</p>`, templ.EscapeString(note))
		}
		fmt.Fprintf(&b, `<p style="margin-top: 30px; font-size: 12px; color: #6b7280; text-align: center;">%s</p>`,
			templ.EscapeString(i18n.T(lang, "email.footer")))
		b.WriteString(`</div></body></html>`)

		_, err := w.Write(b.Bytes())
		return err
	})
}

func body(lang i18n.Language, msg Message) (string, templ.Component, error) {
	label := func(key string) string { return i18n.T(lang, "email.label."+key) }

	switch msg.Kind {
	case KindConfirm:
		return i18n.T(lang, "email.confirm.subject", msg.GuestName),
			emailLayout(lang, i18n.T(lang, "email.confirm.heading"), []row{
				{label("name"), msg.GuestName},
				{label("email"), msg.GuestEmail},
				{label("address"), msg.Address},
			}, "", "", ""), nil
	case KindGiftReserved, KindGiftReleased:
		return i18n.T(lang, "email."+string(msg.Kind)+".subject", msg.GuestName),
			emailLayout(lang, i18n.T(lang, "email."+string(msg.Kind)+".heading"), []row{
				{label("name"), msg.GuestName},
				{label("email"), msg.GuestEmail},
				{label("gift"), msg.GiftName},
			}, msg.GiftLink, i18n.T(lang, "email.view_gift"), ""), nil
	case KindInvite:
		return i18n.T(lang, "email.invite.subject"),
			emailLayout(lang, i18n.T(lang, "email.invite.heading"), []row{
				{label("token"), msg.Token},
				{label("link"), msg.InviteLink},
			}, "", "", i18n.T(lang, "email.invite.share")), nil
	}
	return "", nil, fmt.Errorf("unknown notification kind %q", msg.Kind)
}

// Render produces the subject and HTML body for msg. Recipients are filled
// in by the caller.
func Render(ctx context.Context, lang i18n.Language, msg Message) (Mail, error) {
	subject, component, err := body(lang, msg)
	if err != nil {
		return Mail{}, err
	}
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return Mail{}, fmt.Errorf("failed to render %s email: %w", msg.Kind, err)
	}
	return Mail{Subject: subject, HTML: buf.String()}, nil
}
