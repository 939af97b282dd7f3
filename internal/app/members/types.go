package members

import "github.com/eightonethree/cafe-api/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// SignUpInput is validated with struct tags; field names in errors follow the json tags.
type SignUpInput struct {
	DisplayName string      `json:"displayName" validate:"required,max=80"`
	Email       string      `json:"email" validate:"required,email,max=254"`
	Phone       string      `json:"phone" validate:"required,phone"`
	Password    string      `json:"password" validate:"required,min=8,max=72"`
	Plan        domain.Plan `json:"plan" validate:"required,plan"`
}

type UpdateMeInput struct {
	DisplayName Optional[string] // cannot be null
	Phone       Optional[string] // cannot be null
	Bio         Optional[string] // may be null
	Password    Optional[string] // cannot be null; requires CurrentPassword
	// CurrentPassword must match when Password is specified.
	CurrentPassword string
}

type CreateAdminInput struct {
	DisplayName string `json:"displayName" validate:"required,max=80"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}
