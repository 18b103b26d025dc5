package core

import (
	"bytes"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

const (
	textExt = ".txt"
	htmlExt = ".gohtml"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// TemplateContext is what the email templates are executed with.
	TemplateContext struct {
		FrontendBaseURL string
		Data            interface{}
	}

	executor interface {
		Execute(w io.Writer, data interface{}) error
	}

	// EmailTemplates holds the parsed email templates: {name: {ext: template}}.
	EmailTemplates struct {
		frontendBaseURL string
		byName          map[string]map[string]executor
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates loads every "<name>.txt" and "<name>.gohtml" template found in `dir` of `fsys`.
// Each template is parsed along with its "_base" layout of the same extension.
// With `strict`, executing a template with a missing key fails.
func ParseEmailTemplates(fsys fs.FS, dir, frontendBaseURL string, strict bool) (*EmailTemplates, error) {
	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}

	tmpls := &EmailTemplates{frontendBaseURL: frontendBaseURL, byName: make(map[string]map[string]executor)}
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == textExt || ext == htmlExt) {
			continue
		}

		var tmpl executor
		base := path.Join(dir, "_base"+ext)
		if ext == textExt {
			t, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpl = t
		} else {
			t, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpl = t
		}

		name := strings.TrimSuffix(fname, ext)
		if tmpls.byName[name] == nil {
			tmpls.byName[name] = make(map[string]executor, 2)
		}
		tmpls.byName[name][ext] = tmpl
	}
	return tmpls, nil
}

// Render fills the message TextContent and HTMLContent.
// BodyStr, when set, is the text content; an unknown template name is an error.
func (t *EmailTemplates) Render(m *EmailMessage) error {
	if m.TemplateName == "" {
		m.TextContent = m.BodyStr
		return nil
	}
	entry, ok := t.byName[m.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	ctx := TemplateContext{FrontendBaseURL: t.frontendBaseURL, Data: m.TemplateData}
	execute := func(ext string) (string, error) {
		tmpl, ok := entry[ext]
		if !ok {
			return "", nil
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, ctx); err != nil {
			return "", errors.Wrapf(err, "executing %s%s", m.TemplateName, ext)
		}
		return buf.String(), nil
	}

	var err error
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	} else if m.TextContent, err = execute(textExt); err != nil {
		return err
	}
	m.HTMLContent, err = execute(htmlExt)
	return err
}
