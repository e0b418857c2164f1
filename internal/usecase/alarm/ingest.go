package alarm

import (
	"context"
	"fmt"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// IngestProcessValueUseCase feeds process samples into the registry.
type IngestProcessValueUseCase struct {
	registry *Registry
	metrics  MetricsRecorder
	logger   logger.Logger
}

// NewIngestProcessValueUseCase creates a new IngestProcessValueUseCase with dependencies.
func NewIngestProcessValueUseCase(registry *Registry, metrics MetricsRecorder, logger logger.Logger) *IngestProcessValueUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &IngestProcessValueUseCase{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute evaluates one sample. Unknown tags return an UnknownTagError.
func (uc *IngestProcessValueUseCase) Execute(ctx context.Context, input dto.ProcessValueInput) (*dto.ProcessValueOutput, error) {
	tag, err := entity.ParseTag(input.Tag)
	if err != nil {
		uc.metrics.RecordProcessValue(ctx, input.Tag, "invalid")
		return nil, domainerrors.NewUnknownTagError(input.Tag)
	}

	outcome, err := uc.registry.UpdateProcessValue(tag, input.Value)
	if err != nil {
		uc.metrics.RecordProcessValue(ctx, tag.String(), "unknown_tag")
		return nil, fmt.Errorf("updating process value: %w", err)
	}

	result := "unchanged"
	switch {
	case outcome.Activation:
		result = "triggered"
	case outcome.Returned():
		result = "returned"
	}
	uc.metrics.RecordProcessValue(ctx, tag.String(), result)

	uc.logger.Debug("process value evaluated",
		"tag", tag,
		"value", input.Value,
		"state", outcome.Current,
		"result", result,
	)

	return &dto.ProcessValueOutput{
		Tag:        tag.String(),
		Outcome:    outcome,
		Activation: outcome.Activation,
	}, nil
}
