package activation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"

	"github.com/gofiber/fiber/v2"

	"github.com/danieljhkim/trialgate/internal/license"
)

var pageTemplate = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>trialgate activation</title></head>
<body style="font-family:monospace;background:#030a17;color:#dff8ff;padding:24px">
<div id="trialgate-panel" style="max-width:430px;padding:18px;border-radius:12px;background:#0b1a2b">
  <h2>{{.Notice.Message}}</h2>
  {{if .Notice.PaymentURL}}<p><a href="{{.Notice.PaymentURL}}" target="_blank" rel="noopener" style="color:#46c3c3">Purchase a license</a></p>{{end}}
  <p style="font-size:12px">Device: {{.Notice.Fingerprint}}</p>
  {{if .Flash}}<p style="color:#ffcb77">{{.Flash}}</p>{{end}}
  {{if .Done}}
  <p>License saved. You can close this page.</p>
  {{else}}
  <form method="post" action="/activate">
    <input type="text" name="token" placeholder="License token" autofocus style="width:100%">
    <button type="submit">Activate</button>
  </form>
  <form method="post" action="/dismiss"><button type="submit">Close</button></form>
  {{end}}
</div>
</body>
</html>
`))

type pageData struct {
	Notice Notice
	Flash  string
	Done   bool
}

// WebPanel serves the activation panel on a local HTTP address.
type WebPanel struct {
	session
	addr string
	// OnListen is called with the panel URL once the server accepts
	// connections.
	OnListen func(url string)
}

// NewWebPanel creates a panel listening on addr (host:port).
func NewWebPanel(addr string) *WebPanel {
	return &WebPanel{addr: addr}
}

// Show serves the panel until a token is accepted, the user dismisses it
// or ctx is cancelled.
func (p *WebPanel) Show(ctx context.Context, n Notice, submit SubmitFunc) error {
	return p.attach(ctx, func() error {
		return p.serve(ctx, n, submit)
	})
}

func (p *WebPanel) serve(ctx context.Context, n Notice, submit SubmitFunc) error {
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", p.addr, err)
	}

	outcome := make(chan error, 1)
	app := newPanelApp(n, submit, outcome)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listener(ln)
	}()
	defer func() {
		_ = app.Shutdown()
	}()

	if p.OnListen != nil {
		p.OnListen("http://" + ln.Addr().String() + "/")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-outcome:
		return err
	case err := <-serveErr:
		if err == nil {
			return ErrDismissed
		}
		return fmt.Errorf("activation panel server: %w", err)
	}
}

// newPanelApp builds the fiber app. The first terminal event (accepted
// token, dismissal or storage failure) is sent on outcome.
func newPanelApp(n Notice, submit SubmitFunc, outcome chan<- error) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	finish := func(err error) {
		select {
		case outcome <- err:
		default:
		}
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return render(c, fiber.StatusOK, pageData{Notice: n})
	})

	app.Post("/activate", func(c *fiber.Ctx) error {
		err := submit(c.FormValue("token"))
		switch {
		case err == nil:
			finish(nil)
			return render(c, fiber.StatusOK, pageData{Notice: n, Done: true})
		case errors.Is(err, license.ErrEmptyToken):
			return render(c, fiber.StatusBadRequest, pageData{Notice: n, Flash: "Please enter your license token."})
		case errors.Is(err, license.ErrRejected):
			return render(c, fiber.StatusForbidden, pageData{Notice: n, Flash: "Token not accepted."})
		default:
			finish(err)
			return render(c, fiber.StatusInternalServerError, pageData{Notice: n, Flash: "Could not save the license."})
		}
	})

	app.Post("/dismiss", func(c *fiber.Ctx) error {
		finish(ErrDismissed)
		return c.SendStatus(fiber.StatusNoContent)
	})

	return app
}

func render(c *fiber.Ctx, status int, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
