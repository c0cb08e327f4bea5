package loader

import (
	"context"

	"github.com/ordview/ordview/common/clients"
	"github.com/ordview/ordview/common/content"
)

// Source names where loaded content came from
type Source string

const (
	SourceCache   Source = "cache"
	SourceFetcher Source = "fetcher"
	SourceWallet  Source = "wallet"
	SourceNetwork Source = "network"
)

// Fetcher is a custom content source tried before the wallet and the network.
// Returning an error or a nil payload means "not applicable".
type Fetcher interface {
	Fetch(ctx context.Context, contentID string) (Payload, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, contentID string) (Payload, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, contentID string) (Payload, error) {
	return f(ctx, contentID)
}

// WalletSource is content served by a connected wallet.
// GetContent is only called after IsAvailable reported true.
type WalletSource interface {
	IsAvailable(ctx context.Context) bool
	GetContent(ctx context.Context, contentID string) (Payload, error)
}

// NetworkFetcher downloads content from the content endpoint
type NetworkFetcher interface {
	Fetch(ctx context.Context, contentID string) (*clients.Content, error)
	ContentURL(contentID string) string
}

// Observer is told about every successful classification
type Observer interface {
	OnAnalysis(contentID string, analysis content.Analysis)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(contentID string, analysis content.Analysis)

// OnAnalysis implements Observer
func (f ObserverFunc) OnAnalysis(contentID string, analysis content.Analysis) {
	f(contentID, analysis)
}

// ContentClientFetcher serves a secondary endpoint, such as a mirror, as a custom fetcher
func ContentClientFetcher(client *clients.ContentClient) Fetcher {
	return FetcherFunc(func(ctx context.Context, contentID string) (Payload, error) {
		c, err := client.Fetch(ctx, contentID)
		if err != nil {
			return nil, err
		}
		return Structured{Content: RawBytes(c.Data), ContentType: c.ContentType}, nil
	})
}
