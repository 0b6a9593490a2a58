package playback

import (
	"sync"

	"github.com/soundpulse-cli/soundpulse/log"
)

// ResolverFunc resolves a track identifier to a directly playable stream
// URL.
type ResolverFunc func(id string) (string, error)

// Prefetcher speculatively resolves the direct stream URL for the track
// the primary driver is still attempting, so a fallback switch costs
// nearly nothing. At most one record is kept: starting a new identifier
// discards the previous record even if its resolution is still in flight.
type Prefetcher struct {
	resolver ResolverFunc

	mu       sync.Mutex
	id       string
	url      string
	resolved bool
	done     chan struct{} // closed when the in-flight resolution settles
}

// NewPrefetcher builds a prefetcher over a resolver.
func NewPrefetcher(resolver ResolverFunc) *Prefetcher {
	return &Prefetcher{resolver: resolver}
}

// Start begins resolving a stream URL for id in the background. Calling
// it again for the same identifier while a resolution is pending or
// already complete is a no-op. Resolution failure is swallowed; it
// surfaces only when Resolve has to repeat the work.
func (p *Prefetcher) Start(id string) {
	if id == "" {
		return
	}

	p.mu.Lock()
	if p.id == id {
		p.mu.Unlock()
		return
	}

	p.id = id
	p.url = ""
	p.resolved = false
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go func() {
		url, err := p.resolver(id)

		p.mu.Lock()
		defer p.mu.Unlock()
		defer close(done)

		// A newer record superseded this resolution
		if p.id != id {
			return
		}

		if err != nil {
			log.Warnf("prefetch %s: %v", id, err)
			return
		}

		p.url = url
		p.resolved = true
	}()
}

// Resolve returns the stream URL for id, preferring the prefetched
// record: a settled URL is returned as is, an in-flight resolution is
// awaited, and anything else is resolved on the spot.
func (p *Prefetcher) Resolve(id string) (string, error) {
	p.mu.Lock()
	if p.id == id {
		if p.resolved {
			url := p.url
			p.mu.Unlock()
			return url, nil
		}

		done := p.done
		p.mu.Unlock()

		if done != nil {
			<-done

			p.mu.Lock()
			if p.id == id && p.resolved {
				url := p.url
				p.mu.Unlock()
				return url, nil
			}
			p.mu.Unlock()
		}

		// The prefetch failed or was superseded; resolve again
		return p.resolver(id)
	}
	p.mu.Unlock()

	return p.resolver(id)
}
