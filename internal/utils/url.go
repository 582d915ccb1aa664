package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// GetTransactionSessionUrl returns the signing page for sessionId. baseUrl takes precedence
// over the local server port when set.
func GetTransactionSessionUrl(baseUrl string, serverPort int, sessionId string) (string, error) {
	if baseUrl != "" {
		parsedUrl, err := url.Parse(baseUrl)
		if err != nil {
			return "", fmt.Errorf("invalid BASE_URL: %w", err)
		}
		if parsedUrl.Scheme == "" || parsedUrl.Host == "" {
			return "", fmt.Errorf("invalid BASE_URL: %q is not an absolute URL", baseUrl)
		}
		parsedUrl.Path = strings.TrimSuffix(parsedUrl.Path, "/") + "/tx/" + sessionId
		return parsedUrl.String(), nil
	}

	return fmt.Sprintf("http://localhost:%d/tx/%s", serverPort, sessionId), nil
}
