// internal/resume/render.go
// PDF rendering. The document is expanded into a self-contained HTML page
// and printed through a short-lived headless Chrome. The render allocator
// is isolated from the application-filling browser so a render can never
// disturb the logged-in session.
package resume

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeRenderer renders resumes with a dedicated headless Chrome per call.
type ChromeRenderer struct {
	logger *zap.Logger
}

func NewChromeRenderer(logger *zap.Logger) *ChromeRenderer {
	return &ChromeRenderer{logger: logger.Named("render")}
}

var _ Renderer = (*ChromeRenderer)(nil)

// RenderPDF prints the document to an A4 PDF at outPath.
func (r *ChromeRenderer) RenderPDF(ctx context.Context, doc *Document, outPath string) error {
	html, err := renderHTML(doc)
	if err != nil {
		return err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("printing resume pdf: %w", err)
	}

	if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
		return fmt.Errorf("writing resume pdf: %w", err)
	}
	r.logger.Debug("Rendered resume PDF.", zap.String("path", outPath), zap.Int("bytes", len(pdf)))
	return nil
}

var resumeTemplate = template.Must(template.New("resume").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
	body { font-family: 'Helvetica Neue', Arial, sans-serif; color: #1a1a1a; font-size: 11px; line-height: 1.45; margin: 0; }
	h1 { font-size: 22px; margin: 0; }
	h2 { font-size: 13px; text-transform: uppercase; letter-spacing: 1px; border-bottom: 1px solid #999; padding-bottom: 2px; margin: 16px 0 6px; }
	.headline { font-size: 13px; color: #444; margin: 2px 0 4px; }
	.contact { color: #555; font-size: 10px; }
	.entry { margin-bottom: 8px; }
	.entry-head { display: flex; justify-content: space-between; font-weight: 600; }
	.dates { font-weight: 400; color: #666; }
	ul { margin: 3px 0 0 16px; padding: 0; }
	li { margin-bottom: 2px; }
	.skills span { display: inline-block; margin-right: 8px; }
</style>
</head>
<body>
<h1>{{.Basics.Name}}</h1>
<div class="headline">{{.Basics.Headline}}</div>
<div class="contact">{{.Basics.Email}} &middot; {{.Basics.Phone}} &middot; {{.Basics.Location}}{{if .Basics.Website}} &middot; {{.Basics.Website}}{{end}}</div>

{{if .Summary}}<h2>Summary</h2><p>{{.Summary}}</p>{{end}}

{{if .Skills}}<h2>Skills</h2>
<div class="skills">
{{range .Skills}}<div><strong>{{.Category}}:</strong> {{join .Items ", "}}</div>{{end}}
</div>{{end}}

<h2>Experience</h2>
{{range .Experience}}
<div class="entry">
	<div class="entry-head"><span>{{.Role}}, {{.Company}}</span><span class="dates">{{.Start}} &ndash; {{.End}}</span></div>
	<ul>{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}

{{if .Education}}<h2>Education</h2>
{{range .Education}}
<div class="entry"><div class="entry-head"><span>{{.Degree}}, {{.School}}</span><span class="dates">{{.Year}}</span></div></div>
{{end}}{{end}}
</body>
</html>`))

func renderHTML(doc *Document) (string, error) {
	var b strings.Builder
	if err := resumeTemplate.Execute(&b, doc); err != nil {
		return "", fmt.Errorf("expanding resume template: %w", err)
	}
	return b.String(), nil
}
