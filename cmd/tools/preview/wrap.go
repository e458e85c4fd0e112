package main

import "strings"

const previewShell = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Contact Form Email Preview</title>
    <style>
        body { font-family: Arial, sans-serif; background-color: #e5e5e5; margin: 0; padding: 20px; }
        .preview-note { background: #fff3cd; border: 2px solid #ffc107; padding: 15px; border-radius: 8px; margin: 0 auto 20px; text-align: center; max-width: 600px; }
        .email-container { max-width: 600px; margin: 0 auto; background: white; box-shadow: 0 4px 6px rgba(0,0,0,0.1); border-radius: 8px; }
    </style>
</head>
<body>
    <div class="preview-note">
        <h3 style="margin: 0 0 10px 0;">📧 Email Template Preview</h3>
        <p style="margin: 0;">This is how the contact form notification will look in an email client.</p>
    </div>
    <div class="email-container">
%EMAIL%
    </div>
</body>
</html>
`

// wrapPreview embeds a rendered email inside the preview page.
func wrapPreview(email string) string {
	return strings.Replace(previewShell, "%EMAIL%", email, 1)
}
