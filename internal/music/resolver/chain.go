package resolver

import (
	"context"
	"errors"
	"time"

	"schedule-bot/internal/apperr"
	"schedule-bot/internal/music/media"
	"schedule-bot/pkg/logx"
)

// Chain tries its resolvers in order. YouTube links go to the YouTube
// client first; everything else goes straight to yt-dlp.
type Chain struct {
	youtube *YouTube
	ytdlp   *YTDLP
	timeout time.Duration
	log     logx.Logger
}

func NewChain(yt *YouTube, ytdlp *YTDLP, timeout time.Duration, log logx.Logger) *Chain {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Chain{youtube: yt, ytdlp: ytdlp, timeout: timeout, log: log.With(logx.String("component", "resolver"))}
}

func (c *Chain) ResolveByURL(ctx context.Context, raw string, streaming bool) (media.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var errs []error
	if c.youtube != nil && IsYouTubeURL(raw) {
		tr, err := c.youtube.ResolveByURL(ctx, raw, streaming)
		if err == nil {
			return tr, nil
		}
		c.log.Debug("youtube client failed, trying yt-dlp", logx.String("url", raw), logx.Err(err))
		errs = append(errs, err)
	}
	if c.ytdlp != nil {
		tr, err := c.ytdlp.ResolveByURL(ctx, raw, streaming)
		if err == nil {
			return tr, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no resolver configured"))
	}
	return media.Track{}, &apperr.ResolutionError{Input: raw, Err: errors.Join(unwrapAll(errs)...)}
}

// Search returns the first non-empty result list, capped at five.
func (c *Chain) Search(ctx context.Context, term string) []media.Track {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for _, s := range c.searchers() {
		if res := s.Search(ctx, term); len(res) > 0 {
			if len(res) > MaxSearchResults {
				res = res[:MaxSearchResults]
			}
			return res
		}
		if ctx.Err() != nil {
			c.log.Warn("search timed out", logx.String("term", term))
			return nil
		}
	}
	return nil
}

func (c *Chain) searchers() []Resolver {
	var out []Resolver
	if c.youtube != nil {
		out = append(out, c.youtube)
	}
	if c.ytdlp != nil {
		out = append(out, c.ytdlp)
	}
	return out
}

// unwrapAll strips nested ResolutionErrors so the joined message names the
// input once.
func unwrapAll(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		var re *apperr.ResolutionError
		if errors.As(err, &re) {
			err = re.Err
		}
		out = append(out, err)
	}
	return out
}
