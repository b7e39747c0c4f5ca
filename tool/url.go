package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildEndpointURL joins the service base URL and an endpoint path such as "/extract".
func BuildEndpointURL(baseURL, endpoint string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// BuildExtractedFileURL builds {base}/api/extracted-files/{extractionId}/{relativePath}.
// Every segment of relativePath is escaped separately so nested archive paths survive.
func BuildExtractedFileURL(baseURL, extractionID, relativePath string) string {
	return BuildEndpointURL(baseURL, fmt.Sprintf("/api/extracted-files/%s/%s",
		url.PathEscape(extractionID), escapeSegments(relativePath)))
}

// BuildConvertedImageURL builds {base}/api/converted-images/{conversionId}/{filename}.
func BuildConvertedImageURL(baseURL, conversionID, filename string) string {
	return BuildEndpointURL(baseURL, fmt.Sprintf("/api/converted-images/%s/%s",
		url.PathEscape(conversionID), url.PathEscape(filename)))
}

// ResolveURL returns ref unchanged when it is absolute, otherwise resolves it
// against baseURL (a leading slash resolves against the host root).
func ResolveURL(baseURL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if refURL.IsAbs() {
		return ref, nil
	}
	if !strings.HasPrefix(ref, "/") {
		return BuildEndpointURL(baseURL, ref), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return base.ResolveReference(refURL).String(), nil
}

// HostOf returns the host name of rawURL without port.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func escapeSegments(p string) string {
	p = strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
