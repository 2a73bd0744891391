package vtop

import (
	"strings"
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const captchaPrefix = "data:image/jpeg;base64,"

func extractCsrf(body []byte, form string) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}
	anchor := form + ` input[name="_csrf"]`
	value, ok := doc.Find(anchor).First().Attr("value")
	if !ok || value == "" {
		return "", anchorNotFound(anchor)
	}
	return value, nil
}

// ExtractOpenPageCsrf reads the csrf token of the landing page form.
func ExtractOpenPageCsrf(body []byte) (string, error) {
	return extractCsrf(body, "form#stdForm")
}

// ExtractContentCsrf reads the csrf token of the logout form present on
// every page after logging in.
func ExtractContentCsrf(body []byte) (string, error) {
	return extractCsrf(body, "form#logoutForm1")
}

// ExtractCaptcha returns the captcha as a data uri.
func ExtractCaptcha(body []byte) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}
	var captcha string
	doc.Find("div#captchaBlock img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if strings.HasPrefix(src, captchaPrefix) {
			captcha = src
			return false
		}
		return true
	})
	if captcha == "" {
		return "", anchorNotFound("div#captchaBlock img[src^=" + captchaPrefix + "]")
	}
	return captcha, nil
}

// ExtractLoginError reads the banner shown on a failed login.
func ExtractLoginError(body []byte) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}
	banner := doc.Find(`span[role="alert"]`).First()
	if banner.Length() == 0 {
		return "", anchorNotFound(`span[role="alert"]`)
	}
	return htmlutil.Text(banner), nil
}
