package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/model"
	"github.com/interacthq/interaction-server-go/internal/repository"
	"github.com/interacthq/interaction-server-go/internal/scope"
	"github.com/interacthq/interaction-server-go/internal/util"
)

// Field length limits, matching the column definitions.
const (
	maxTitleLen       = 255
	maxLeadLen        = 100
	maxLocationLen    = 255
	maxDescriptionLen = 5000
	maxNotesLen       = 2000
)

type InteractionService struct {
	interactionRepo repository.InteractionRepository
}

func NewInteractionService(interactionRepo repository.InteractionRepository) *InteractionService {
	return &InteractionService{interactionRepo: interactionRepo}
}

// Create validates and stores a new interaction in the active site.
// Validation is fail-complete: all field errors are collected and
// returned together rather than stopping at the first one.
func (s *InteractionService) Create(ctx context.Context, sc *scope.Context, params model.CreateInteractionParams) (*model.Interaction, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Lead = strings.TrimSpace(params.Lead)

	fields := []apperrors.FieldError{}

	if params.Title == "" {
		fields = append(fields, apperrors.FieldError{Field: "title", Message: "Title is required"})
	} else if len(params.Title) > maxTitleLen {
		fields = append(fields, lengthError("title", maxTitleLen))
	}

	if params.Type == "" {
		fields = append(fields, apperrors.FieldError{Field: "type", Message: "Type is required"})
	} else if !model.IsValidInteractionType(params.Type) {
		fields = append(fields, apperrors.FieldError{Field: "type",
			Message: "Type must be one of: " + strings.Join(model.InteractionTypes, ", ")})
	}

	if params.Lead == "" {
		fields = append(fields, apperrors.FieldError{Field: "lead", Message: "Lead is required"})
	} else if len(params.Lead) > maxLeadLen {
		fields = append(fields, lengthError("lead", maxLeadLen))
	}

	if params.StartDatetime.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "startDatetime", Message: "Start datetime is required"})
	}

	if params.Timezone == "" {
		fields = append(fields, apperrors.FieldError{Field: "timezone", Message: "Timezone is required"})
	} else if !util.IsValidTimezone(params.Timezone) {
		fields = append(fields, apperrors.FieldError{Field: "timezone", Message: "Timezone must be a valid IANA zone name"})
	}

	if params.EndDatetime != nil && !params.StartDatetime.IsZero() && params.EndDatetime.Before(params.StartDatetime) {
		fields = append(fields, apperrors.FieldError{Field: "endDatetime", Message: "End datetime must not be before start datetime"})
	}

	fields = append(fields, optionalLengthErrors(params.Location, params.Description, params.Notes)...)

	if len(fields) > 0 {
		return nil, apperrors.Validation("The interaction contains invalid data", fields)
	}

	interaction, err := s.interactionRepo.Create(ctx, params, sc.SiteID, sc.User.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return interaction, nil
}

// Get returns an interaction visible from the active site. Records in
// other sites are indistinguishable from records that do not exist.
func (s *InteractionService) Get(ctx context.Context, sc *scope.Context, id int64) (*model.Interaction, error) {
	interaction, err := s.interactionRepo.FindByID(ctx, id, sc.AllowedSiteIDs())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if interaction == nil {
		return nil, apperrors.NotFound("Interaction")
	}
	return interaction, nil
}

// Update applies a partial update to an in-scope interaction. Provided
// fields are validated against the record as it will be after the
// merge, so a new end datetime is checked against the existing start
// when the start is not part of the update.
func (s *InteractionService) Update(ctx context.Context, sc *scope.Context, id int64, params model.UpdateInteractionParams) (*model.Interaction, error) {
	existing, err := s.interactionRepo.FindByID(ctx, id, sc.AllowedSiteIDs())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing == nil {
		return nil, apperrors.NotFound("Interaction")
	}

	fields := []apperrors.FieldError{}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			fields = append(fields, apperrors.FieldError{Field: "title", Message: "Title is required"})
		} else if len(title) > maxTitleLen {
			fields = append(fields, lengthError("title", maxTitleLen))
		}
		params.Title = &title
	}

	if params.Type != nil && !model.IsValidInteractionType(*params.Type) {
		fields = append(fields, apperrors.FieldError{Field: "type",
			Message: "Type must be one of: " + strings.Join(model.InteractionTypes, ", ")})
	}

	if params.Lead != nil {
		lead := strings.TrimSpace(*params.Lead)
		if lead == "" {
			fields = append(fields, apperrors.FieldError{Field: "lead", Message: "Lead is required"})
		} else if len(lead) > maxLeadLen {
			fields = append(fields, lengthError("lead", maxLeadLen))
		}
		params.Lead = &lead
	}

	if params.Timezone != nil && !util.IsValidTimezone(*params.Timezone) {
		fields = append(fields, apperrors.FieldError{Field: "timezone", Message: "Timezone must be a valid IANA zone name"})
	}

	start := existing.StartDatetime
	if params.StartDatetime != nil {
		start = *params.StartDatetime
	}
	end := existing.EndDatetime
	if params.EndDatetime != nil {
		end = params.EndDatetime
	}
	if end != nil && end.Before(start) {
		fields = append(fields, apperrors.FieldError{Field: "endDatetime", Message: "End datetime must not be before start datetime"})
	}

	fields = append(fields, optionalLengthErrors(params.Location, params.Description, params.Notes)...)

	if len(fields) > 0 {
		return nil, apperrors.Validation("The interaction contains invalid data", fields)
	}

	interaction, err := s.interactionRepo.Update(ctx, id, params, sc.AllowedSiteIDs(), sc.User.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if interaction == nil {
		return nil, apperrors.NotFound("Interaction")
	}
	return interaction, nil
}

// Delete removes an in-scope interaction.
func (s *InteractionService) Delete(ctx context.Context, sc *scope.Context, id int64) error {
	affected, err := s.interactionRepo.Delete(ctx, id, sc.AllowedSiteIDs())
	if err != nil {
		return apperrors.Database(err)
	}
	if affected == 0 {
		return apperrors.NotFound("Interaction")
	}
	return nil
}

// Search lists in-scope interactions matching the filters, paginated
// and sorted. Sort requests outside the column allow-list fall back to
// created_at descending.
func (s *InteractionService) Search(ctx context.Context, sc *scope.Context, filters model.InteractionFilters, sortBy, sortDir string, page, pageSize int) (*model.Page[model.Interaction], error) {
	if filters.Type != "" && !model.IsValidInteractionType(filters.Type) {
		return nil, apperrors.InvalidField("type",
			"Type must be one of: "+strings.Join(model.InteractionTypes, ", "))
	}
	if filters.StartAfter != nil && filters.StartBefore != nil && filters.StartBefore.Before(*filters.StartAfter) {
		return nil, apperrors.InvalidField("startBefore", "Date range end must not precede its start")
	}

	column, direction := normalizeSort(sortBy, sortDir)
	offset := (page - 1) * pageSize

	items, err := s.interactionRepo.Search(ctx, sc.AllowedSiteIDs(), filters, column, direction, pageSize, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.interactionRepo.CountSearch(ctx, sc.AllowedSiteIDs(), filters)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	result := model.NewPage(items, total, page, pageSize)
	return &result, nil
}

// Types returns the allowed interaction type values.
func (s *InteractionService) Types() []string {
	return model.InteractionTypes
}

func normalizeSort(sortBy, sortDir string) (string, string) {
	column, ok := model.SortableInteractionColumns[strings.ToLower(sortBy)]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortDir, "asc") {
		direction = "ASC"
	}
	return column, direction
}

func lengthError(field string, max int) apperrors.FieldError {
	return apperrors.FieldError{Field: field, Message: fmt.Sprintf("Must be at most %d characters", max)}
}

func optionalLengthErrors(location, description, notes *string) []apperrors.FieldError {
	var fields []apperrors.FieldError
	if location != nil && len(*location) > maxLocationLen {
		fields = append(fields, lengthError("location", maxLocationLen))
	}
	if description != nil && len(*description) > maxDescriptionLen {
		fields = append(fields, lengthError("description", maxDescriptionLen))
	}
	if notes != nil && len(*notes) > maxNotesLen {
		fields = append(fields, lengthError("notes", maxNotesLen))
	}
	return fields
}
