package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// Backoff holds the wait before each retry, per failure class. The number of attempts is
// len(waits)+1.
type Backoff struct {
	RateLimit   []time.Duration
	ServerError []time.Duration
}

// DefaultBackoff suits the Responses API rate limits on a flex service tier.
var DefaultBackoff = Backoff{
	RateLimit:   []time.Duration{65 * time.Second, 100 * time.Second},
	ServerError: []time.Duration{5 * time.Second, 30 * time.Second},
}

// CallWithRetry sends params, retrying rate limit and server errors with DefaultBackoff.
func CallWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	return Retry(ctx, DefaultBackoff, func(ctx context.Context) (*responses.Response, error) {
		return client.Responses.New(ctx, params)
	})
}

// Retry runs call until it succeeds, fails with a non-retryable error, runs out of waits in
// b, or ctx is done.
func Retry[T any](ctx context.Context, b Backoff, call func(context.Context) (T, error)) (T, error) {
	var zero T
	rateAttempts, serverAttempts := 0, 0
	for {
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}

		var wait time.Duration
		switch {
		case IsRateLimitError(err) && rateAttempts < len(b.RateLimit):
			wait = b.RateLimit[rateAttempts]
			rateAttempts++
		case IsServerError(err) && serverAttempts < len(b.ServerError):
			wait = b.ServerError[serverAttempts]
			serverAttempts++
		default:
			if rateAttempts+serverAttempts > 0 {
				return zero, fmt.Errorf("failed after %d attempts: %w", rateAttempts+serverAttempts+1, err)
			}
			return zero, err
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}

func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// GenerateSchema reflects T into a JSON schema accepted by strict structured outputs: every
// object closes additionalProperties and lists all of its properties as required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schemaObj, err := schemaToMap(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	ensureStrict(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureStrict(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			required := make([]string, 0, len(properties))
			for propName := range properties {
				required = append(required, propName)
			}
			if len(required) > 0 {
				sortStrings(required)
				schema[requiredKey] = required
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureStrict(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureStrict(items)
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
