package otel

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// OTEL variable carrier for handing trace context across a process boundary through the environment.
//
// Injection: values are set on it and kept internally. Environ renders them as `NAME=value`
// pairs for a child process or grading container.
// Extraction: values are read from the current environment by prefix. The prefix is used to
// avoid collisions and identify available keys.
type EnvCarrier struct {
	vars map[string]*string
}

// Ensure `EnvCarrier` implements [propagation.TextMapCarrier]
var _ propagation.TextMapCarrier = (*EnvCarrier)(nil)

func CreateEnvCarrier() EnvCarrier {
	return EnvCarrier{vars: make(map[string]*string)}
}

const envPrefix = "ENV_CARRIER_OTEL_"

// prepend prefix and replace all - with _
func mapKey(key string) string {
	return fmt.Sprintf("%s%s", envPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
}

// strip prefix and replace all _ with - which might break if the original key contained _ intentionally
func unmapKey(mappedKey string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(mappedKey, envPrefix), "_", "-"))
}

func (c EnvCarrier) Get(key string) string {
	key = mapKey(key)
	mapVal := c.vars[key]
	if mapVal != nil {
		return *mapVal
	}

	return os.Getenv(key)
}

func (c EnvCarrier) Set(key string, value string) {
	key = mapKey(key)

	c.vars[key] = &value
}

func (c EnvCarrier) Keys() []string {
	keysSet := make(map[string]bool, len(c.vars))

	for name := range c.vars {
		keysSet[unmapKey(name)] = true
	}

	for _, env := range os.Environ() {
		split := strings.SplitN(env, "=", 2)

		if !strings.HasPrefix(split[0], envPrefix) {
			continue
		}

		keysSet[unmapKey(split[0])] = true
	}

	keys := make([]string, 0, len(keysSet))

	for k := range keysSet {
		keys = append(keys, k)
	}

	return keys
}

// Renders injected variables as sorted `NAME=value` pairs.
//
// Meant to be used after injecting the carrier vars
//
//	otel.GetTextMapPropagator().Inject(ctx, carrier)
func (c EnvCarrier) Environ() []string {
	vars := make([]string, 0, len(c.vars))

	for name, value := range c.vars {
		if value == nil {
			continue
		}

		vars = append(vars, name+"="+*value)
	}

	sort.Strings(vars)
	return vars
}

// Captures the trace context of ctx into a new carrier
func InjectEnv(ctx context.Context) EnvCarrier {
	carrier := CreateEnvCarrier()
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

// Returns a context carrying the trace context found in the process environment
func ExtractEnv(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, CreateEnvCarrier())
}
