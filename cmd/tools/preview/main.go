// Command preview renders the contact notification email with sample data, or
// with a stored submission, so the template can be checked in a browser.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/my-mailer/internal/notify"
	"github.com/noah-isme/my-mailer/internal/store"
	"github.com/noah-isme/my-mailer/internal/submission"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	out      string
	dataDir  string
	id       string
	template string
	text     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the contact form notification email",
		Long: `Render the contact form notification email to an HTML file.

Sample data is used unless --id names a stored submission, which is then
loaded from --data-dir. --template renders a draft template file in place of
the built-in one. The output path is printed on success.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default: a new temp file)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "contact_submissions", "directory holding stored submissions")
	cmd.Flags().StringVar(&opts.id, "id", "", "stored submission id to render instead of sample data")
	cmd.Flags().StringVar(&opts.template, "template", "", "HTML template to render instead of the built-in one")
	cmd.Flags().BoolVar(&opts.text, "text", false, "also print the plain-text body to stdout")
	return cmd
}

func runPreview(cmd *cobra.Command, opts *options) error {
	rec := sampleRecord(time.Now())
	if opts.id != "" {
		fs, err := store.OpenFileStore(opts.dataDir)
		if err != nil {
			return err
		}
		rec, err = fs.Load(context.Background(), opts.id)
		if err != nil {
			return fmt.Errorf("load %s: %w", opts.id, err)
		}
	}

	tmpl := notify.ContactFormTemplate()
	if opts.template != "" {
		raw, err := os.ReadFile(opts.template)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		tmpl = string(raw)
	}
	page := wrapPreview(notify.RenderHTMLTemplate(tmpl, rec))

	path := opts.out
	if path == "" {
		f, err := os.CreateTemp("", "contact-preview-*.html")
		if err != nil {
			return err
		}
		path = f.Name()
		if _, err := f.WriteString(page); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	} else if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subject: %s\n", notify.SubjectLine(rec))
	fmt.Fprintf(out, "Preview written to %s\n", path)
	if opts.text {
		fmt.Fprintln(out, notify.RenderText(rec))
	}
	return nil
}

func sampleRecord(now time.Time) submission.Record {
	return submission.Submission{
		Name:    "John Doe",
		Email:   "john.doe@example.com",
		Subject: "Inquiry About Your Services",
		Message: `Hello,

I came across your website and I'm very interested in learning more about your services. I have a project that I think would be a great fit for your expertise.

Could we schedule a call this week to discuss the details?

Looking forward to hearing from you!

Best regards,
John`,
		Timestamp: now,
		Origin:    "192.168.1.100",
	}.Record()
}
