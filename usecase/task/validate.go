package task

import (
	"strconv"
	"strings"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/validation"
)

// MaxBatchSize bounds the ids accepted by one batch call.
const MaxBatchSize = 500

type taskFields struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Priority    int    `json:"priority" validate:"min=0,max=4"`
	Category    string `json:"category" validate:"max=50"`
}

var (
	titleRule       = "required,max=" + strconv.Itoa(domain.MaxTitleLength)
	descriptionRule = "max=" + strconv.Itoa(domain.MaxDescriptionLength)
	categoryRule    = "max=" + strconv.Itoa(domain.MaxCategoryLength)
	priorityRule    = "min=0,max=" + strconv.Itoa(domain.PriorityLevels-1)
)

func validateDraft(draft domain.TaskDraft) error {
	return validation.Struct(&taskFields{
		Title:       strings.TrimSpace(draft.Title),
		Description: domain.NormalizeText(draft.Description),
		Priority:    int(draft.Priority),
		Category:    domain.NormalizeText(draft.Category),
	})
}

func validatePatch(patch domain.TaskPatch) error {
	var errs []error
	if patch.Title != nil {
		errs = append(errs, validation.Var("title", strings.TrimSpace(*patch.Title), titleRule))
	}
	if patch.Description != nil {
		errs = append(errs, validation.Var("description", domain.NormalizeText(*patch.Description), descriptionRule))
	}
	if patch.Priority != nil {
		errs = append(errs, validation.Var("priority", int(*patch.Priority), priorityRule))
	}
	if patch.Category != nil {
		errs = append(errs, validation.Var("category", domain.NormalizeText(*patch.Category), categoryRule))
	}
	return validation.Merge(errs...)
}

// normalizeQuery canonicalizes the sort field and validates paging and filters.
func normalizeQuery(query domain.TaskQuery) (domain.TaskQuery, error) {
	query.SortBy = domain.ParseSortField(string(query.SortBy))
	if err := validation.Struct(&query); err != nil {
		return query, err
	}
	return query, nil
}

func validateBatch(ids []string) error {
	if len(ids) > MaxBatchSize {
		return validation.Fail("ids", "at most "+strconv.Itoa(MaxBatchSize)+" ids per batch")
	}
	return nil
}
