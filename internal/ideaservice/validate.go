package ideaservice

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
)

const (
	maxBodyLen = 20000
	maxTagLen  = 64
	maxTags    = 50
)

func validateID(id int64) error {
	if err := validation.Validate(id, validation.Min(int64(1))); err != nil {
		return fmt.Errorf("%w: idea_id %v", apperr.ErrInvalid, err)
	}
	return nil
}

// validatePayload checks sizes and link ids. Blockers are stored verbatim,
// empty entries included.
func validatePayload(p idea.Payload) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Body, validation.RuneLength(0, maxBodyLen)),
		validation.Field(&p.Tags,
			validation.Length(0, maxTags),
			validation.Each(validation.RuneLength(0, maxTagLen)),
		),
		validation.Field(&p.BornWithIDs, validation.Each(validation.Min(int64(1)))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return nil
}

func validateCreate(in idea.CreatePayload) error {
	if err := validatePayload(in.Payload); err != nil {
		return err
	}
	return in.Status.Validate()
}
