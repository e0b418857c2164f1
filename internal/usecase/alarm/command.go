package alarm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// ErrUnknownAction is returned for an operator action the registry does not support.
var ErrUnknownAction = errors.New("unknown alarm action")

// Operator actions accepted by OperatorCommandUseCase.
const (
	ActionAcknowledge = "acknowledge"
	ActionShelve      = "shelve"
	ActionUnshelve    = "unshelve"
	ActionSuppress    = "suppress"
	ActionUnsuppress  = "unsuppress"
	ActionEnable      = "enable"
	ActionDisable     = "disable"
)

// Actions lists every supported operator action.
func Actions() []string {
	return []string{
		ActionAcknowledge,
		ActionShelve,
		ActionUnshelve,
		ActionSuppress,
		ActionUnsuppress,
		ActionEnable,
		ActionDisable,
	}
}

// OperatorCommandUseCase applies operator commands to the registry.
type OperatorCommandUseCase struct {
	registry *Registry
	logger   logger.Logger
}

// NewOperatorCommandUseCase creates a new OperatorCommandUseCase with dependencies.
func NewOperatorCommandUseCase(registry *Registry, logger logger.Logger) *OperatorCommandUseCase {
	return &OperatorCommandUseCase{
		registry: registry,
		logger:   logger,
	}
}

// Execute runs one command. A command that does not apply to the alarm's
// current state succeeds with Outcome.Changed false.
func (uc *OperatorCommandUseCase) Execute(ctx context.Context, input dto.CommandInput) (*dto.CommandOutput, error) {
	action := strings.ToLower(strings.TrimSpace(input.Action))
	tag, err := entity.ParseTag(input.Tag)
	if err != nil {
		return nil, domainerrors.NewUnknownTagError(input.Tag)
	}

	opts := []CommandOption{ByOperator(input.Operator)}

	var outcome entity.TransitionOutcome
	switch action {
	case ActionAcknowledge:
		outcome, err = uc.registry.Acknowledge(tag, opts...)
	case ActionShelve:
		outcome, err = uc.registry.Shelve(tag, opts...)
	case ActionUnshelve:
		outcome, err = uc.registry.Unshelve(tag, opts...)
	case ActionSuppress:
		outcome, err = uc.registry.Suppress(tag, opts...)
	case ActionUnsuppress:
		outcome, err = uc.registry.Unsuppress(tag, opts...)
	case ActionEnable:
		outcome, err = uc.registry.SetEnabled(tag, true, opts...)
	case ActionDisable:
		outcome, err = uc.registry.SetEnabled(tag, false, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, input.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("%s alarm: %w", action, err)
	}

	snapshot, err := uc.registry.Alarm(tag)
	if err != nil {
		return nil, fmt.Errorf("reading alarm after %s: %w", action, err)
	}

	if outcome.Changed {
		uc.logger.Info("operator command applied",
			"tag", tag,
			"action", action,
			"operator", input.Operator,
			"from", outcome.Previous,
			"to", outcome.Current,
		)
	} else {
		uc.logger.Debug("operator command had no effect",
			"tag", tag,
			"action", action,
			"state", outcome.Current,
		)
	}

	return &dto.CommandOutput{
		Tag:     tag.String(),
		Action:  action,
		Outcome: outcome,
		Alarm:   snapshot,
	}, nil
}
