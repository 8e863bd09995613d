package i18n

// EmailContent is an unrendered transactional email. Bodies contain
// {{key}} placeholders that the mail queue substitutes at send time.
type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

var emailTemplates = map[string]map[string]EmailContent{
	"en": {
		"email_verification": {
			Subject: "Verify your email",
			Text: "Hi {{username}},\n\nConfirm your email address by opening this link:\n{{link}}\n\n" +
				"The link expires in {{hours}} hour(s).\nIf you did not create an account, you can ignore this email.",
			HTML: "<p>Hi {{username}},</p>" +
				"<p>Confirm your email address by clicking the link below.</p>" +
				"<p><a href=\"{{link}}\">Verify email</a></p>" +
				"<p>The link expires in {{hours}} hour(s).</p>" +
				"<p>If you did not create an account, you can ignore this email.</p>",
		},
		"welcome": {
			Subject: "Welcome aboard",
			Text:    "Hi {{username}},\n\nYour account is ready. You can sign in now.",
			HTML: "<p>Hi {{username}},</p>" +
				"<p>Your account is ready. You can sign in now.</p>",
		},
		"password_reset": {
			Subject: "Reset your password",
			Text: "Hi {{username}},\n\nReset your password: {{link}}\nThe link expires in {{hours}} hour(s).\n" +
				"If you did not request this, ignore this email.",
			HTML: "<p>Hi {{username}},</p>" +
				"<p>Click the button to reset your password.</p>" +
				"<p><a href=\"{{link}}\">Reset password</a></p>" +
				"<p>The link expires in {{hours}} hour(s).</p>" +
				"<p>If you did not request this, ignore this email.</p>",
		},
		"signin_alert": {
			Subject: "New sign-in to your account",
			Text: "Hi {{username}},\n\nA new sign-in occurred on {{time}}.\n\n" +
				"IP: {{ip}}\nDevice: {{device}}\n\n" +
				"If this wasn't you, please reset your password immediately.",
			HTML: "<p>Hi {{username}},</p>" +
				"<p>A new sign-in occurred on <strong>{{time}}</strong>.</p>" +
				"<ul><li><strong>IP:</strong> {{ip}}</li>" +
				"<li><strong>Device:</strong> {{device}}</li></ul>" +
				"<p>If this wasn't you, please reset your password immediately.</p>",
		},
	},
	"de": {
		"email_verification": {
			Subject: "E-Mail-Adresse bestätigen",
			Text: "Hallo {{username}},\n\nbestätige deine E-Mail-Adresse über diesen Link:\n{{link}}\n\n" +
				"Der Link läuft in {{hours}} Stunde(n) ab.\nFalls du kein Konto erstellt hast, ignoriere diese E-Mail.",
			HTML: "<p>Hallo {{username}},</p>" +
				"<p>Bestätige deine E-Mail-Adresse über den folgenden Link.</p>" +
				"<p><a href=\"{{link}}\">E-Mail bestätigen</a></p>" +
				"<p>Der Link läuft in {{hours}} Stunde(n) ab.</p>" +
				"<p>Falls du kein Konto erstellt hast, ignoriere diese E-Mail.</p>",
		},
		"welcome": {
			Subject: "Willkommen",
			Text:    "Hallo {{username}},\n\ndein Konto ist bereit. Du kannst dich jetzt anmelden.",
			HTML: "<p>Hallo {{username}},</p>" +
				"<p>Dein Konto ist bereit. Du kannst dich jetzt anmelden.</p>",
		},
		"password_reset": {
			Subject: "Passwort zurücksetzen",
			Text: "Hallo {{username}},\n\nsetze dein Passwort zurück: {{link}}\nDer Link läuft in {{hours}} Stunde(n) ab.\n" +
				"Falls du das nicht angefordert hast, ignoriere diese E-Mail.",
			HTML: "<p>Hallo {{username}},</p>" +
				"<p>Klicke auf den Button, um dein Passwort zurückzusetzen.</p>" +
				"<p><a href=\"{{link}}\">Passwort zurücksetzen</a></p>" +
				"<p>Der Link läuft in {{hours}} Stunde(n) ab.</p>" +
				"<p>Falls du das nicht angefordert hast, ignoriere diese E-Mail.</p>",
		},
		"signin_alert": {
			Subject: "Neue Anmeldung bei deinem Konto",
			Text: "Hallo {{username}},\n\neine neue Anmeldung erfolgte am {{time}}.\n\n" +
				"IP: {{ip}}\nGerät: {{device}}\n\n" +
				"Falls du das nicht warst, setze bitte sofort dein Passwort zurück.",
			HTML: "<p>Hallo {{username}},</p>" +
				"<p>Eine neue Anmeldung erfolgte am <strong>{{time}}</strong>.</p>" +
				"<ul><li><strong>IP:</strong> {{ip}}</li>" +
				"<li><strong>Gerät:</strong> {{device}}</li></ul>" +
				"<p>Falls du das nicht warst, setze bitte sofort dein Passwort zurück.</p>",
		},
	},
}

// EmailTemplate resolves a template by locale and ID, falling back to
// the default locale when either is unknown.
func EmailTemplate(locale, templateID string) (EmailContent, bool) {
	templates, ok := emailTemplates[locale]
	if !ok {
		templates = emailTemplates[DefaultLocale]
	}
	content, ok := templates[templateID]
	if !ok && locale != DefaultLocale {
		content, ok = emailTemplates[DefaultLocale][templateID]
	}
	return content, ok
}
