package emitter

import (
	"strconv"
	"strings"

	"netsentry/internal/model"
)

// The connection table exposes no duration or size measurements, so live
// vectors carry the normal-profile centers for those two features and the
// port carries the signal.
const (
	baselineDuration = 15
	baselineSize     = 1500
)

// FeaturesFromConnection synthesizes the scoring vector for a live
// connection. The port comes from the remote endpoint for established
// connections and from the local endpoint for listeners.
func FeaturesFromConnection(c model.Connection) model.FeatureVector {
	endpoint := c.Remote
	if c.State == model.StateListen {
		endpoint = c.Local
	}
	return model.FeatureVector{
		Duration: baselineDuration,
		Size:     baselineSize,
		Port:     float64(portOf(endpoint)),
	}
}

// portOf extracts the numeric port from an "ip:port" endpoint string,
// returning 0 when the endpoint is absent or unparseable.
func portOf(endpoint string) int {
	if endpoint == "" || endpoint == model.EndpointUnknown {
		return 0
	}
	i := strings.LastIndex(endpoint, ":")
	if i < 0 {
		return 0
	}
	p, err := strconv.Atoi(endpoint[i+1:])
	if err != nil || p < 0 {
		return 0
	}
	return p
}
