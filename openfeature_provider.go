package appconfiguration

import (
	"context"
	"errors"

	"github.com/open-feature/go-sdk/pkg/openfeature"
)

// Provider implements the OpenFeature FeatureProvider interface on top
// of a Client. The evaluation context's targeting key becomes the
// entity id; every other context value becomes an entity attribute.
type Provider struct {
	Client *Client
}

func (p Provider) Metadata() openfeature.Metadata {
	return openfeature.Metadata{Name: "appconfiguration-go-provider"}
}

func (p Provider) Hooks() []openfeature.Hook {
	return []openfeature.Hook{}
}

func entityFromEvaluationContext(evalCtx openfeature.FlattenedContext) (entityID string, attributes map[string]interface{}, err error) {
	attributes = make(map[string]interface{}, len(evalCtx))
	for key, value := range evalCtx {
		if key == openfeature.TargetingKey {
			id, ok := value.(string)
			if !ok {
				return "", nil, errors.New("targeting key must be a string")
			}
			entityID = id
			continue
		}
		attributes[key] = value
	}
	if entityID == "" {
		return "", nil, errors.New("targeting key is required")
	}
	return entityID, attributes, nil
}

func (p Provider) resolve(flag string, evalCtx openfeature.FlattenedContext) (interface{}, openfeature.ProviderResolutionDetail, bool) {
	entityID, attributes, err := entityFromEvaluationContext(evalCtx)
	if err != nil {
		return nil, openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewInvalidContextResolutionError(err.Error()), Reason: openfeature.ErrorReason,
		}, false
	}
	value, err := p.Client.EvaluateFeature(flag, entityID, attributes)
	if err != nil {
		return nil, openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewFlagNotFoundResolutionError(err.Error()), Reason: openfeature.ErrorReason,
		}, false
	}
	return value, openfeature.ProviderResolutionDetail{Reason: openfeature.TargetingMatchReason}, true
}

func (p Provider) BooleanEvaluation(ctx context.Context, flag string, defaultValue bool, evalCtx openfeature.FlattenedContext) openfeature.BoolResolutionDetail {
	value, detail, ok := p.resolve(flag, evalCtx)
	if !ok {
		return openfeature.BoolResolutionDetail{Value: defaultValue, ProviderResolutionDetail: detail}
	}
	if b, isBool := value.(bool); isBool {
		return openfeature.BoolResolutionDetail{Value: b, ProviderResolutionDetail: detail}
	}
	return openfeature.BoolResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTypeMismatchResolutionError("flag value is not a boolean"), Reason: openfeature.ErrorReason,
		},
	}
}

func (p Provider) StringEvaluation(ctx context.Context, flag string, defaultValue string, evalCtx openfeature.FlattenedContext) openfeature.StringResolutionDetail {
	value, detail, ok := p.resolve(flag, evalCtx)
	if !ok {
		return openfeature.StringResolutionDetail{Value: defaultValue, ProviderResolutionDetail: detail}
	}
	if s, isString := value.(string); isString {
		return openfeature.StringResolutionDetail{Value: s, ProviderResolutionDetail: detail}
	}
	return openfeature.StringResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTypeMismatchResolutionError("flag value is not a string"), Reason: openfeature.ErrorReason,
		},
	}
}

func (p Provider) FloatEvaluation(ctx context.Context, flag string, defaultValue float64, evalCtx openfeature.FlattenedContext) openfeature.FloatResolutionDetail {
	value, detail, ok := p.resolve(flag, evalCtx)
	if !ok {
		return openfeature.FloatResolutionDetail{Value: defaultValue, ProviderResolutionDetail: detail}
	}
	switch v := value.(type) {
	case float64:
		return openfeature.FloatResolutionDetail{Value: v, ProviderResolutionDetail: detail}
	case int:
		return openfeature.FloatResolutionDetail{Value: float64(v), ProviderResolutionDetail: detail}
	}
	return openfeature.FloatResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTypeMismatchResolutionError("flag value is not a number"), Reason: openfeature.ErrorReason,
		},
	}
}

func (p Provider) IntEvaluation(ctx context.Context, flag string, defaultValue int64, evalCtx openfeature.FlattenedContext) openfeature.IntResolutionDetail {
	value, detail, ok := p.resolve(flag, evalCtx)
	if !ok {
		return openfeature.IntResolutionDetail{Value: defaultValue, ProviderResolutionDetail: detail}
	}
	switch v := value.(type) {
	case float64:
		return openfeature.IntResolutionDetail{Value: int64(v), ProviderResolutionDetail: detail}
	case int:
		return openfeature.IntResolutionDetail{Value: int64(v), ProviderResolutionDetail: detail}
	case int64:
		return openfeature.IntResolutionDetail{Value: v, ProviderResolutionDetail: detail}
	}
	return openfeature.IntResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTypeMismatchResolutionError("flag value is not an integer"), Reason: openfeature.ErrorReason,
		},
	}
}

func (p Provider) ObjectEvaluation(ctx context.Context, flag string, defaultValue interface{}, evalCtx openfeature.FlattenedContext) openfeature.InterfaceResolutionDetail {
	value, detail, ok := p.resolve(flag, evalCtx)
	if !ok {
		return openfeature.InterfaceResolutionDetail{Value: defaultValue, ProviderResolutionDetail: detail}
	}
	return openfeature.InterfaceResolutionDetail{Value: value, ProviderResolutionDetail: detail}
}
