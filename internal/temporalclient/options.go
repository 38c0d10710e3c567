// Package temporalclient connects toolchat binaries to Temporal.
//
// Options come from the SDK's envconfig package: TEMPORAL_ADDRESS,
// TEMPORAL_NAMESPACE, TLS settings, or a temporal.toml profile. Flags and
// the [temporal] section of the toolchat config override them.
package temporalclient

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/contrib/envconfig"
	"go.temporal.io/sdk/log"
)

// LoadClientOptions loads client options through envconfig. Non-empty
// hostPort and namespace override the loaded values.
func LoadClientOptions(hostPort, namespace string) (client.Options, error) {
	opts, err := envconfig.LoadClientOptions(envconfig.LoadClientOptionsRequest{})
	if err != nil {
		return client.Options{}, fmt.Errorf("load temporal client options: %w", err)
	}
	if hostPort != "" {
		opts.HostPort = hostPort
	}
	if namespace != "" {
		opts.Namespace = namespace
	}
	return opts, nil
}

// Dial loads options and connects. A nil logger keeps the SDK default.
func Dial(hostPort, namespace string, logger log.Logger) (client.Client, client.Options, error) {
	opts, err := LoadClientOptions(hostPort, namespace)
	if err != nil {
		return nil, client.Options{}, err
	}
	if logger != nil {
		opts.Logger = logger
	}
	c, err := client.Dial(opts)
	if err != nil {
		return nil, opts, fmt.Errorf("dial temporal: %w", err)
	}
	return c, opts, nil
}
