package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// promptCodes asks the operator to open the consent page and paste back
// either the code or the whole redirect URL.
type promptCodes struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPromptCodes(in io.Reader, out io.Writer) *promptCodes {
	return &promptCodes{in: bufio.NewReader(in), out: out}
}

func (p *promptCodes) AuthorizationCode(ctx context.Context, authorizationURL string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Open the following URL and sign in:\n\n  %s\n\nPaste the redirect URL or its code parameter: ", authorizationURL)

	type answer struct {
		line string
		err  error
	}
	read := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		read <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-read:
		if a.err != nil {
			return "", fmt.Errorf("read authorization code: %w", a.err)
		}
		return extractCode(a.line), nil
	}
}

// extractCode accepts a bare code or a redirect URL carrying ?code=.
func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "code=") {
		return input
	}
	raw := input
	if u, err := url.Parse(input); err == nil && u.RawQuery != "" {
		raw = u.RawQuery
	}
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return input
	}
	if code := values.Get("code"); code != "" {
		return code
	}
	return input
}
