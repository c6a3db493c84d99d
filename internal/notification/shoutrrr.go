package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr, creating a single
// sender for multiple recipient URLs.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewShoutrrrProvider creates a provider for the given shoutrrr URLs.
func NewShoutrrrProvider(name string, enabled bool, urls []string, timeout time.Duration) *ShoutrrrProvider {
	sp := &ShoutrrrProvider{
		name:    strings.TrimSpace(name),
		enabled: enabled,
		urls:    slices.Clone(urls),
		timeout: timeout,
	}
	if sp.name == "" {
		sp.name = "shoutrrr"
	}
	return sp
}

func (s *ShoutrrrProvider) GetName() string { return s.name }
func (s *ShoutrrrProvider) IsEnabled() bool { return s.enabled }

// ValidateConfig builds the sender, which validates the URLs as a side
// effect.
func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if len(s.urls) == 0 {
		return fmt.Errorf("at least one URL is required")
	}
	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return fmt.Errorf("invalid shoutrrr URL: %w", err)
	}
	s.sender = sender
	if s.timeout > 0 {
		s.sender.Timeout = s.timeout
	}
	s.sender.SetLogger(log.New(io.Discard, "", 0))
	return nil
}

// Send delivers the notification to all configured URLs.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if s.sender == nil {
		return fmt.Errorf("shoutrrr sender not initialized")
	}
	_ = ctx // router handles its own timeouts

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	errs := s.sender.Send(n.Message, &params)
	for _, e := range errs {
		if e != nil {
			return fmt.Errorf("shoutrrr send failed: %w", e)
		}
	}
	return nil
}
