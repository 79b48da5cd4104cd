// Package ttsclient is the boundary to the remote text-to-speech execution
// service. The service owns synthesis, credit accounting and key rotation;
// this package only carries requests and results across HTTP or NATS.
package ttsclient

import (
	"fmt"

	"voicequeue/internal/config"
)

// New builds the client selected by backend.transport.
func New(cfg *config.Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	switch cfg.Backend.Transport {
	case config.TransportHTTP:
		return NewHTTPClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.RequestTimeout(), cfg.BatchTimeout()), nil
	case config.TransportNATS:
		return DialNATS(cfg.Backend.NATSURL, cfg.Backend.SubjectPrefix, cfg.RequestTimeout(), cfg.BatchTimeout())
	default:
		return nil, fmt.Errorf("unsupported backend transport %q", cfg.Backend.Transport)
	}
}
