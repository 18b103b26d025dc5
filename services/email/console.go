package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
)

var (
	sentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// SentMessages returns the messages sent by the console services so far.
func SentMessages() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	return append([]core.EmailMessage(nil), sentMessages...)
}

func ResetSentMessages() {
	mu.Lock()
	sentMessages = sentMessages[:0]
	mu.Unlock()
}

type consoleService struct {
	from       mail.Address
	subjPrefix string
	templates  *core.EmailTemplates
	out        *log.Logger // nil: print nothing
	sync       bool
}

var _ core.EmailService = (*consoleService)(nil) // interface compliance check

// NewConsoleService prints the messages to `out` instead of sending them.
func NewConsoleService(conf *core.Config, templates *core.EmailTemplates, out *log.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		templates:  templates,
		out:        out,
	}
}

// NewConsoleServiceMock sends synchronously and prints nothing.
func NewConsoleServiceMock(conf *core.Config, templates *core.EmailTemplates) core.EmailService {
	svc := NewConsoleService(conf, templates, nil).(*consoleService)
	svc.sync = true
	return svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if err := svc.templates.Render(msg); err != nil {
		svc.printf("%+v", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if svc.out != nil {
		var body strings.Builder
		if err := svc.write(&body, *msg); err != nil {
			svc.printf("%+v", err)
			return
		}
		svc.out.Println(body.String())
	}

	mu.Lock()
	sentMessages = append(sentMessages, *msg)
	mu.Unlock()
}

func (svc *consoleService) printf(format string, args ...interface{}) {
	if svc.out != nil {
		svc.out.Printf(format, args...)
	}
}

// write formats `msg` as a multipart/alternative MIME message.
func (svc *consoleService) write(w io.Writer, msg core.EmailMessage) error {
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.String())
	}

	parts := multipart.NewWriter(w)
	_, _ = fmt.Fprintf(w, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprintf(w, "To: %s\r\n", strings.Join(to, ", "))
	_, _ = fmt.Fprintf(w, "Date: %s\r\n", core.NowFunc().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	_, _ = fmt.Fprintf(w, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprint(w, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(w, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", parts.Boundary())

	contents := [][2]string{{"text/plain", msg.TextContent}, {"text/html", msg.HTMLContent}}
	for _, c := range contents {
		if c[1] == "" {
			continue
		}
		pw, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {c[0] + "; charset=utf-8"}})
		if err != nil {
			return errors.Wrap(err, "creating "+c[0]+" part")
		}
		_, _ = fmt.Fprintf(pw, "%s\r\n", c[1])
	}
	return parts.Close()
}
