package vars

import (
	"os"
)

// GetEnv returns the environment variable or the fallback when unset.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

const (
	// Chat model names
	QWEN7B = "qwen2.5:7b"
	QWEN3B = "qwen2.5:3b"

	// Tone escalation ladder, mildest first. Sender levels 1-4 map onto it;
	// concerned_inquiry is reserved for hardship handling.
	ToneFriendlyReminder = "friendly_reminder"
	ToneProfessional     = "professional"
	ToneConcernedInquiry = "concerned_inquiry"
	ToneFirm             = "firm"
	ToneFinalNotice      = "final_notice"

	// Outbound channels
	ChannelEmail = "email"

	// ES index for the case-event audit trail
	EventsIndex = "case_events_v1"
)

// ToneLadder is the escalation order used for deterministic tone hints.
var ToneLadder = []string{ToneFriendlyReminder, ToneProfessional, ToneFirm, ToneFinalNotice}

// Environment configuration (Docker-friendly).
var (
	// Ollama (default provider)
	OLLAMA_PATH = GetEnv("OLLAMA_PATH", "http://localhost:11434")
	CHAT_MODEL  = GetEnv("CHAT_MODEL", QWEN7B)

	// OpenAI (used instead of Ollama when the key is set)
	OPENAI_API_KEY = GetEnv("OPENAI_API_KEY", "")
	OPENAI_MODEL   = GetEnv("OPENAI_MODEL", "gpt-4o-mini")

	// PG
	PGUSER = GetEnv("PGUSER", "root")
	PGPWD  = GetEnv("PGPWD", "root")
	PGDB   = GetEnv("PGDB", "dunningDB")
	PGHOST = GetEnv("PGHOST", "localhost")
	PGPORT = GetEnv("PGPORT", "5432")

	// ES
	ESADDR = GetEnv("ESADDR", "http://localhost:9200")

	// HTTP
	HTTPADDR = GetEnv("HTTPADDR", ":8081")
)

// CLASSIFY is the inbound email classification prompt. The model must return
// a single JSON object; parsing failures degrade to UNCLEAR downstream.
const CLASSIFY = `
You are an assistant for a B2B debt collection platform. Classify the inbound email from a debtor.

Classifications (in priority order for multi-intent emails):
1. INSOLVENCY: mentions administration, liquidation, bankruptcy, CVA, IVA, receivership
2. DISPUTE: disputes the invoice - error, goods not received, quality issue, wrong amount
3. ALREADY_PAID: specifically claims payment has already been made
4. UNSUBSCRIBE: requests to stop receiving emails
5. HOSTILE: aggressive, threatening, or abusive language
6. PROMISE_TO_PAY: commits to a specific payment date or amount
7. HARDSHIP: financial difficulty, cash flow problems, struggling
8. PLAN_REQUEST: asks to pay in instalments
9. REDIRECT: asks to contact a different person or department
10. REQUEST_INFO: asks for invoice copy, statement, or other information
11. OUT_OF_OFFICE: auto-reply, vacation message - note return date
12. COOPERATIVE: acknowledges the debt, willing to work with us
13. UNCLEAR: cannot confidently classify

Data extraction rules:
- PROMISE_TO_PAY: extract promise_date (YYYY-MM-DD) and promise_amount if specified. If the commitment is vague ("soon", "next month") leave promise_date empty.
- DISPUTE or ALREADY_PAID: extract dispute_type (goods_not_received, quality_issue, pricing_error, already_paid, wrong_customer, other) and dispute_reason.
- REDIRECT: extract redirect_contact and redirect_email.
- OUT_OF_OFFICE: extract return_date (YYYY-MM-DD) if stated.

Confidence: 0.9-1.0 clear, 0.7-0.9 likely, 0.5-0.7 uncertain, below 0.5 use UNCLEAR.

Debtor context:
- Total outstanding: {{.TotalOutstanding}}
- Broken promises so far: {{.BrokenPromises}}
- Active dispute: {{.ActiveDispute}}
- Hardship indicated: {{.Hardship}}

Email:
From: {{.FromName}} <{{.FromAddress}}>
Subject: {{.Subject}}

{{.Body}}

Output JSON only, no markdown:
{
  "classification": "...",
  "confidence": 0.0,
  "reasoning": "...",
  "secondary_intents": [],
  "extracted_data": {
    "promise_date": null,
    "promise_amount": null,
    "dispute_type": null,
    "dispute_reason": null,
    "redirect_contact": null,
    "redirect_email": null,
    "return_date": null
  }
}
`

// TONEHINT asks the model for tone and call-to-action hints for the next
// draft. The engine stays deterministic; tone selection is delegated here.
const TONEHINT = `
You advise a B2B debt collection platform on the tone of the next outbound email. Do not write the email.

Allowed tones: friendly_reminder, professional, concerned_inquiry, firm, final_notice.
Rules of thumb:
- never open a relationship with firm or final_notice
- hardship calls for concerned_inquiry and a payment plan offer
- broken promises justify a firmer tone
- escalate at most one step from the last tone used

Case context:
- State: {{.State}}
- Total outstanding: {{.TotalOutstanding}}
- Touches so far: {{.TouchCount}}
- Last tone used: {{.LastTone}}
- Broken promises: {{.BrokenPromises}}
- Hardship indicated: {{.Hardship}}
- Recommended sender level (1-4): {{.SenderLevel}}
- Last response intent: {{.LastResponse}}

Output JSON only, no markdown:
{"tone_hint": "...", "cta_hint": "..."}
`
