// Package builtin ships ready-made tools that sessions can register
// alongside caller-supplied ones.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/tool"
)

const maxWebpageBytes = 2 << 20

// Webpage returns a tool that fetches a URL and extracts its readable
// text (headings, paragraphs, list items) for the model to consume.
func Webpage(client *http.Client) *tool.Tool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &tool.Tool{
		Name:        "webpage",
		Description: "Fetch a web page and return its readable text content",
		Parameters: []tool.Parameter{
			{Name: "url", Type: "string", Description: "absolute URL of the page to fetch", Required: true},
		},
		Handler: func(ctx context.Context, input []byte) ([]message.Chunk, error) {
			var args struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
			if args.URL == "" {
				return nil, fmt.Errorf("url is required")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("fetch %s: status %d", args.URL, resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebpageBytes))
			if err != nil {
				return nil, err
			}

			text, err := htmlToText(string(body))
			if err != nil {
				return nil, err
			}
			return []message.Chunk{message.TextChunk(text)}, nil
		},
	}
}

// htmlToText: lightweight extraction of content, keep headings and paragraphs
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	var out []string
	doc.Find("h1,h2,h3,p,li,pre").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h1":
			out = append(out, "# "+strings.TrimSpace(s.Text()))
		case "h2":
			out = append(out, "## "+strings.TrimSpace(s.Text()))
		case "h3":
			out = append(out, "### "+strings.TrimSpace(s.Text()))
		case "p":
			out = append(out, strings.TrimSpace(s.Text()))
		case "li":
			out = append(out, "- "+strings.TrimSpace(s.Text()))
		case "pre":
			out = append(out, "```\n"+strings.TrimSpace(s.Text())+"\n```")
		}
	})
	return strings.Join(out, "\n\n"), nil
}
