package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
)

// LeadProcessor consumes lead IDs from the queue and delivers them to the
// vendor platform.
type LeadProcessor struct {
	leads  LeadRepository
	vendor VendorAPIClient
}

func NewLeadProcessor(leads LeadRepository, vendor VendorAPIClient) *LeadProcessor {
	return &LeadProcessor{leads: leads, vendor: vendor}
}

// Process takes a lead ID (as string from the queue) and submits the lead
// upstream. A returned error means the job should be retried; a rejected lead
// (4xx) is terminal and is marked failed without error.
func (p *LeadProcessor) Process(ctx context.Context, jobID string) error {
	id, err := strconv.ParseInt(jobID, 10, 64)
	if err != nil {
		return err
	}

	lead, err := p.leads.AcquirePending(ctx, id)
	if err != nil {
		return err
	}

	payload := LeadPayload{
		Reference:   lead.Reference,
		FullName:    lead.FullName,
		Email:       lead.Email,
		Phone:       lead.Phone,
		MoveDate:    lead.MoveDate,
		FromAddress: lead.FromAddress,
		ToAddress:   lead.ToAddress,
		HomeSize:    lead.HomeSize,
		Notes:       lead.Notes,
	}

	if err := p.vendor.SubmitLead(ctx, payload); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			// The platform rejected the payload; retrying the same lead
			// cannot succeed.
			reason := apiErr.Detail
			if reason == "" {
				reason = fmt.Sprintf("rejected with status %d", apiErr.StatusCode)
			}
			if markErr := p.leads.MarkFailed(ctx, id, reason); markErr != nil {
				log.Printf("failed to mark lead %d rejected: %v", id, markErr)
			}
			log.Printf("lead %s rejected upstream: %s", lead.Reference, reason)
			return nil
		}
		return err
	}

	if err := p.leads.MarkDelivered(ctx, id); err != nil {
		log.Printf("failed to mark lead %d delivered: %v", id, err)
	}
	return nil
}
