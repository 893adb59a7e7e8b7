package identity

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Policy resolves whether an email carries the admin role. Injected wherever
// admin gating happens; callers must not assume any caching behavior.
type Policy interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// StaticPolicy grants the admin role to a fixed set of emails.
type StaticPolicy struct {
	emails map[string]struct{}
}

func NewStaticPolicy(emails []string) *StaticPolicy {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(strings.ToLower(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &StaticPolicy{emails: set}
}

func (p *StaticPolicy) IsAdmin(_ context.Context, email string) (bool, error) {
	_, ok := p.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

// AllowlistPolicy resolves admins against a newline-delimited remote list.
// Lines starting with '#' and blank lines are ignored; matching is
// case-insensitive. The list is cached for a TTL. When the list cannot be
// fetched and no cached copy exists, only the fallback email is an admin.
type AllowlistPolicy struct {
	url      string
	fallback string
	ttl      time.Duration
	client   *http.Client
	logger   zerolog.Logger

	mu        sync.Mutex
	cached    map[string]struct{}
	fetchedAt time.Time
}

func NewAllowlistPolicy(url, fallbackEmail string, ttl time.Duration, logger zerolog.Logger) *AllowlistPolicy {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AllowlistPolicy{
		url:      url,
		fallback: strings.ToLower(strings.TrimSpace(fallbackEmail)),
		ttl:      ttl,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.With().Str("component", "admin_allowlist").Logger(),
	}
}

func (p *AllowlistPolicy) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}

	list, err := p.allowlist(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("allowlist unreachable, using fallback admin")
		return p.fallback != "" && email == p.fallback, nil
	}

	_, ok := list[email]
	return ok, nil
}

func (p *AllowlistPolicy) allowlist(ctx context.Context) (map[string]struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && time.Since(p.fetchedAt) < p.ttl {
		return p.cached, nil
	}

	list, err := p.fetch(ctx)
	if err != nil {
		// Serve the stale copy when we have one.
		if p.cached != nil {
			return p.cached, nil
		}
		return nil, err
	}

	p.cached = list
	p.fetchedAt = time.Now()
	return list, nil
}

func (p *AllowlistPolicy) fetch(ctx context.Context) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build allowlist request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch allowlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("allowlist returned status %d", resp.StatusCode)
	}

	return ParseAllowlist(bufio.NewScanner(resp.Body)), nil
}

// ParseAllowlist reads one email per line, skipping '#' comments and blanks.
func ParseAllowlist(scanner *bufio.Scanner) map[string]struct{} {
	list := make(map[string]struct{})
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list[strings.ToLower(line)] = struct{}{}
	}
	return list
}
