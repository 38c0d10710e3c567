package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/version"
)

// registerHandlers registers query and update handlers on the workflow.
// Handlers only record requests; the main loop in run applies anything
// that has to go through an activity.
func (s *SessionState) registerHandlers(ctx workflow.Context) {
	logger := workflow.GetLogger(ctx)

	err := workflow.SetQueryHandler(ctx, QueryGetMessages, func() ([]models.Message, error) {
		return s.Snapshot.Messages, nil
	})
	if err != nil {
		logger.Error("Failed to register get_messages query handler", "error", err)
	}

	err = workflow.SetQueryHandler(ctx, QueryGetStatus, func() (Status, error) {
		st := s.status()
		st.WorkerVersion = version.String()
		return st, nil
	})
	if err != nil {
		logger.Error("Failed to register get_status query handler", "error", err)
	}

	err = workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateUserInput,
		func(ctx workflow.Context, input UserInput) (UserInputAccepted, error) {
			s.inputs = append(s.inputs, input.Content)
			return UserInputAccepted{Queued: len(s.inputs)}, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, input UserInput) error {
				if input.Content == "" {
					return fmt.Errorf("content must not be empty")
				}
				if s.shutdown {
					return fmt.Errorf("session is shutting down")
				}
				return nil
			},
		},
	)
	if err != nil {
		logger.Error("Failed to register user_input update handler", "error", err)
	}

	// approval_response blocks until the loop has applied the decision so
	// the caller gets the command's outcome back.
	err = workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateApprovalResponse,
		func(ctx workflow.Context, resp ApprovalResponse) (ApprovalResult, error) {
			d := resp.Decision
			s.decision = &d
			if err := workflow.Await(ctx, func() bool { return s.decision == nil }); err != nil {
				return ApprovalResult{}, err
			}
			return s.outcome, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, resp ApprovalResponse) error {
				switch resp.Decision {
				case models.DecisionApprove, models.DecisionDeny:
				default:
					return fmt.Errorf("unknown decision %q", resp.Decision)
				}
				if s.shutdown {
					return fmt.Errorf("session is shutting down")
				}
				if s.decision != nil {
					return fmt.Errorf("a decision is already being applied")
				}
				if !s.hasPending() {
					return fmt.Errorf("no execution is waiting for confirmation")
				}
				return nil
			},
		},
	)
	if err != nil {
		logger.Error("Failed to register approval_response update handler", "error", err)
	}

	err = workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateSettings,
		func(ctx workflow.Context, req SettingsUpdate) (SettingsResponse, error) {
			for k, v := range req.Values {
				s.Snapshot.Settings[k] = v
			}
			logger.Info("Settings updated", "keys", len(req.Values))
			return SettingsResponse{Settings: s.Snapshot.Settings}, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, req SettingsUpdate) error {
				if len(req.Values) == 0 {
					return fmt.Errorf("no settings given")
				}
				for k, v := range req.Values {
					if !settings.Settable(k) {
						return fmt.Errorf("unknown setting %q", k)
					}
					switch v.(type) {
					case bool, string:
					default:
						return fmt.Errorf("setting %q must be a bool or string", k)
					}
				}
				return nil
			},
		},
	)
	if err != nil {
		logger.Error("Failed to register update_settings update handler", "error", err)
	}

	err = workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateClearHistory,
		func(ctx workflow.Context, req ClearHistoryRequest) (Ack, error) {
			s.clear = true
			if err := workflow.Await(ctx, func() bool { return !s.clear }); err != nil {
				return Ack{}, err
			}
			return Ack{Acknowledged: true}, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, req ClearHistoryRequest) error {
				if s.shutdown {
					return fmt.Errorf("session is shutting down")
				}
				return nil
			},
		},
	)
	if err != nil {
		logger.Error("Failed to register clear_history update handler", "error", err)
	}

	err = workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateModel,
		func(ctx workflow.Context, req UpdateModelRequest) (UpdateModelResponse, error) {
			if req.Provider != "" && req.Provider != s.Model.Provider {
				s.Model.Provider = req.Provider
				s.Model.ServerURL = ""
			}
			s.Model.Model = req.Model
			logger.Info("Model updated", "provider", s.Model.Provider, "model", s.Model.Model)
			return UpdateModelResponse{Model: s.Model}, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, req UpdateModelRequest) error {
				if req.Model == "" {
					return fmt.Errorf("model must not be empty")
				}
				return nil
			},
		},
	)
	if err != nil {
		logger.Error("Failed to register update_model update handler", "error", err)
	}

	err = workflow.SetUpdateHandler(
		ctx,
		UpdateListModels,
		func(ctx workflow.Context) (ListModelsResponse, error) {
			names, err := listModels(ctx, s.Model)
			if err != nil {
				return ListModelsResponse{}, err
			}
			return ListModelsResponse{Current: s.Model.Model, Models: names}, nil
		},
	)
	if err != nil {
		logger.Error("Failed to register list_models update handler", "error", err)
	}

	err = workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateShutdown,
		func(ctx workflow.Context, req ShutdownRequest) (Ack, error) {
			s.shutdown = true
			return Ack{Acknowledged: true}, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, req ShutdownRequest) error {
				if s.shutdown {
					return fmt.Errorf("session is already shutting down")
				}
				return nil
			},
		},
	)
	if err != nil {
		logger.Error("Failed to register shutdown update handler", "error", err)
	}
}
