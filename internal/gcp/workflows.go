package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// ReviewTrigger starts the checking workflow for records entering review.
type ReviewTrigger struct {
	client    *executions.Client
	projectID string
	location  string
	workflow  string
}

// NewReviewTrigger creates an executions client for the given workflow.
func NewReviewTrigger(ctx context.Context, projectID, location, workflowID string) (*ReviewTrigger, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewReviewTrigger: projectID, location and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &ReviewTrigger{client: client, projectID: projectID, location: location, workflow: workflowID}, nil
}

// TriggerReview creates a workflow execution for the record.
func (t *ReviewTrigger) TriggerReview(ctx context.Context, projectID, issuerID string) error {
	payload, err := json.Marshal(map[string]string{
		"projectId": projectID,
		"issuerId":  issuerID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", t.projectID, t.location, t.workflow),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := t.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger review workflow: %w", err)
	}
	return nil
}

func (t *ReviewTrigger) Close() error {
	return t.client.Close()
}
