// Package status probes the configured integrations.
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/gateway/rest"
)

// Result is the outcome of one probe. Messages are shown to Arabic-speaking staff.
type Result struct {
	Name       string    `json:"name"`
	Configured bool      `json:"configured"`
	OK         bool      `json:"ok"`
	Message    string    `json:"message"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Endpoints are the probe targets.
type Endpoints struct {
	ZidBaseURL      string
	OpenAIBaseURL   string
	WhatsAppBaseURL string
}

// Checker runs every probe concurrently.
type Checker struct {
	endpoints Endpoints
	creds     rest.Credentials
	timeout   time.Duration
	now       func() time.Time
}

// NewChecker creates a checker.
func NewChecker(endpoints Endpoints, creds rest.Credentials) *Checker {
	if endpoints.OpenAIBaseURL == "" {
		endpoints.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	return &Checker{endpoints: endpoints, creds: creds, timeout: 10 * time.Second, now: time.Now}
}

type probe func(ctx context.Context) Result

// Collect returns results in a fixed order: zid, openai, whatsapp, email.
func (c *Checker) Collect(ctx context.Context) []Result {
	probes := []probe{c.checkZid, c.checkOpenAI, c.checkWhatsApp, c.checkEmail}
	results := make([]Result, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			r := p(ctx)
			r.CheckedAt = c.now().UTC()
			results[i] = r
		}(i, p)
	}
	wg.Wait()
	return results
}

func (c *Checker) httpCheck(ctx context.Context, name, url, token string) Result {
	client := rest.New(name, "", c.timeout)
	if err := client.Probe(ctx, url, token); err != nil {
		var gw *apperr.GatewayError
		if errors.As(err, &gw) && gw.Status > 0 {
			return Result{Name: name, Configured: true, Message: fmt.Sprintf("خطأ HTTP %d: %s", gw.Status, clip(gw.Body))}
		}
		return Result{Name: name, Configured: true, Message: fmt.Sprintf("تعذر إجراء الاتصال: %v", err)}
	}
	return Result{Name: name, Configured: true, OK: true, Message: "نجح الاتصال التجريبي"}
}

func (c *Checker) checkZid(ctx context.Context) Result {
	token, ok := c.creds.Lookup(ctx, "ZID_TOKEN")
	if !ok {
		return Result{Name: "zid", Message: "لم يتم ضبط مفتاح زد بعد"}
	}
	return c.httpCheck(ctx, "zid", strings.TrimRight(c.endpoints.ZidBaseURL, "/")+"/products", token)
}

func (c *Checker) checkOpenAI(ctx context.Context) Result {
	token, ok := c.creds.Lookup(ctx, "OPENAI_API_KEY")
	if !ok {
		return Result{Name: "openai", Message: "مفتاح OpenAI غير متوفر"}
	}
	return c.httpCheck(ctx, "openai", strings.TrimRight(c.endpoints.OpenAIBaseURL, "/")+"/models", token)
}

func (c *Checker) checkWhatsApp(ctx context.Context) Result {
	token, okToken := c.creds.Lookup(ctx, "WA_TOKEN")
	phoneID, okPhone := c.creds.Lookup(ctx, "WA_PHONE_ID")
	if !okToken || !okPhone {
		return Result{Name: "whatsapp", Message: "بيانات واتساب ناقصة (الرمز أو معرف الرقم)"}
	}
	url := fmt.Sprintf("%s/%s/message_templates", strings.TrimRight(c.endpoints.WhatsAppBaseURL, "/"), phoneID)
	return c.httpCheck(ctx, "whatsapp", url, token)
}

// Mail OAuth needs interactive consent, so only the presence of stored
// tokens is checked.
func (c *Checker) checkEmail(ctx context.Context) Result {
	if _, ok := c.creds.Lookup(ctx, "EMAIL_TOKENS"); !ok {
		return Result{Name: "email", Message: "لا توجد حسابات بريد متصلة بعد"}
	}
	return Result{Name: "email", Configured: true, OK: true, Message: "تم العثور على رموز بريد إلكتروني مخزنة وجاهزة للاستخدام"}
}

func clip(s string) string {
	if r := []rune(s); len(r) > 120 {
		return string(r[:120])
	}
	return s
}
