package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"forma/config"
	"forma/engine"
)

// NewRenderer selects the certificate document renderer from
// configuration: a remote HTML-to-PDF converter when one is
// configured, plain HTML documents otherwise.
func NewRenderer(cfg *config.Config) engine.Renderer {
	if cfg.PDFServiceURL != "" {
		return &PDFRenderer{
			ServiceURL: cfg.PDFServiceURL,
			client:     resty.New().SetTimeout(15 * time.Second),
		}
	}
	return HTMLRenderer{}
}

// HTMLRenderer produces the certificate as a standalone HTML document.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(fields engine.CertificateFields) ([]byte, error) {
	return []byte(certificateHTML(fields)), nil
}

// PDFRenderer posts the certificate HTML to an external converter
// service and returns the PDF bytes.
type PDFRenderer struct {
	ServiceURL string
	client     *resty.Client
}

func (r *PDFRenderer) Render(fields engine.CertificateFields) ([]byte, error) {
	resp, err := r.client.R().
		SetHeader("Content-Type", "text/html").
		SetBody(certificateHTML(fields)).
		Post(r.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("pdf service: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("pdf service returned status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func certificateHTML(fields engine.CertificateFields) string {
	sessionLine := ""
	if fields.SessionDate != nil {
		sessionLine = fmt.Sprintf(`<p>Session held on %s</p>`, fields.SessionDate.Format("January 2, 2006"))
	}
	scoreLine := ""
	if fields.Score != nil {
		scoreLine = fmt.Sprintf(`<p>Final score: <strong>%d%%</strong></p>`, *fields.Score)
	}
	accreditation := ""
	if fields.Accredited {
		accreditation = `<p class="accredited">Accredited continuing-education training</p>`
	}

	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Georgia, 'Times New Roman', serif; color: #1B3A4B; text-align: center; }
			.certificate { max-width: 700px; margin: 60px auto; padding: 60px; border: 4px double #1B3A4B; }
			h1 { letter-spacing: 3px; }
			.name { font-size: 28px; margin: 30px 0 10px; }
			.training { font-size: 22px; font-style: italic; }
			.accredited { color: #8A6D1D; font-weight: bold; }
			.number { font-size: 11px; color: #666666; margin-top: 40px; }
		</style>
	</head>
	<body>
		<div class="certificate">
			<h1>CERTIFICATE OF COMPLETION</h1>
			<p>This certifies that</p>
			<p class="name">%s</p>
			<p>has successfully completed the training</p>
			<p class="training">%s</p>
			<p>Duration: %d hours</p>
			%s
			%s
			%s
			<p>Issued on %s</p>
			<p class="number">Certificate n° %s</p>
		</div>
	</body>
	</html>
	`,
		fields.ParticipantName,
		fields.TrainingTitle,
		fields.DurationHours,
		sessionLine,
		scoreLine,
		accreditation,
		fields.IssuedAt.Format("January 2, 2006"),
		fields.CertificateNumber,
	)
}

// DiskDocumentStore writes certificate documents under a local
// directory served statically by the app.
type DiskDocumentStore struct {
	Dir string
	PDF bool // whether documents are PDF (remote renderer) or HTML
}

// NewDocumentStore creates the document store matching the configured renderer.
func NewDocumentStore(cfg *config.Config) *DiskDocumentStore {
	return &DiskDocumentStore{Dir: cfg.CertificateDir, PDF: cfg.PDFServiceURL != ""}
}

func (s *DiskDocumentStore) SaveCertificate(certificateNumber string, document []byte) (string, error) {
	ext := ".html"
	if s.PDF {
		ext = ".pdf"
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	name := certificateNumber + ext
	if err := os.WriteFile(filepath.Join(s.Dir, name), document, 0o644); err != nil {
		return "", err
	}
	return "/certificates/" + name, nil
}
