package utils

// Server-side strings: health checks and email copy. Email values are
// text/template sources rendered by the mail package.

// Locales lists the languages the server has strings for.
var Locales = []string{"en", "de"}

var translations = map[string]map[string]string{
	"en": {
		"health.ok": "ok",

		"email.invite.subject": "You are invited to the {{.TeamName}} team survey",
		"email.invite.body": `Hello,

you have been invited to describe how your team leads in the "{{.TeamName}}" survey.
It takes about five minutes and covers eight adjective pairs.

Start here: {{.Link}}
`,
		"email.reminder.subject": "Reminder: the {{.TeamName}} team survey is waiting for you",
		"email.reminder.body": `Hello,

your answers for "{{.TeamName}}" are still missing. The survey stays open for {{.DaysRemaining}} more day(s).

Continue here: {{.Link}}
`,
		"email.magic.subject": "Your sign-in link",
		"email.magic.body": `Hello,

use the link below to sign in. It expires shortly and works once.

{{.Link}}

If you did not ask for this email you can ignore it.
`,
		"email.released.subject": "Team Survey Results Available - {{.TeamName}}",
		"email.released.body": `Hello,

the results of "{{.TeamName}}" have been released. Your team can now see the team average.

Open the results: {{.Link}}
`,
	},
	"de": {
		"health.ok": "ok",

		"email.invite.subject": "Einladung zur Team-Umfrage {{.TeamName}}",
		"email.invite.body": `Hallo,

Sie wurden eingeladen, in der Umfrage "{{.TeamName}}" die Führung Ihres Teams zu beschreiben.
Das dauert etwa fünf Minuten und umfasst acht Adjektivpaare.

Hier starten: {{.Link}}
`,
		"email.reminder.subject": "Erinnerung: Die Team-Umfrage {{.TeamName}} wartet auf Sie",
		"email.reminder.body": `Hallo,

Ihre Antworten für "{{.TeamName}}" fehlen noch. Die Umfrage ist noch {{.DaysRemaining}} Tag(e) geöffnet.

Hier weitermachen: {{.Link}}
`,
		"email.magic.subject": "Ihr Anmeldelink",
		"email.magic.body": `Hallo,

mit dem folgenden Link melden Sie sich an. Er ist nur kurz und nur einmal gültig.

{{.Link}}

Falls Sie diese E-Mail nicht angefordert haben, können Sie sie ignorieren.
`,
		"email.released.subject": "Team-Umfrageergebnisse verfügbar - {{.TeamName}}",
		"email.released.body": `Hallo,

die Ergebnisse von "{{.TeamName}}" wurden freigegeben. Ihr Team sieht jetzt den Teamdurchschnitt.

Zu den Ergebnissen: {{.Link}}
`,
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}
